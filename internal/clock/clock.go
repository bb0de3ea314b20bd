// Package clock implements the network-adjusted wall clock (spec component
// C2): local time plus the clamped median of peer-reported time offsets.
package clock

import (
	"sort"
	"time"

	"github.com/nakamoto-go/nakamoto/internal/peer"
)

// MaxAdjustment is the hard clamp on the returned adjustment, ±70 minutes,
// per the reference client. Samples outside this bound are still stored —
// so a later removal or re-evaluation is stable — but the returned
// adjustment saturates at the bound.
const MaxAdjustment = 70 * 60 // seconds

// Source supplies the local wall-clock reading. Abstracted so tests can pin
// time; production code uses the real system clock.
type Source interface {
	Now() time.Time
}

// SystemSource reads time.Now().
type SystemSource struct{}

// Now returns the current wall-clock time.
func (SystemSource) Now() time.Time { return time.Now() }

// Adjusted aggregates per-peer time-offset samples into a network-adjusted
// clock. It is owned exclusively by the protocol engine: nothing here is
// safe for concurrent use, matching the engine's single-threaded step model.
type Adjusted struct {
	source  Source
	samples map[peer.ID]int64
}

// New returns an Adjusted clock reading from source.
func New(source Source) *Adjusted {
	return &Adjusted{
		source:  source,
		samples: make(map[peer.ID]int64),
	}
}

// AddSample records p's offset in seconds (peer clock minus local clock).
// A later call for the same peer replaces its sample.
func (a *Adjusted) AddSample(p peer.ID, offsetSeconds int64) {
	a.samples[p] = offsetSeconds
}

// RemoveSample retracts p's sample, if any.
func (a *Adjusted) RemoveSample(p peer.ID) {
	delete(a.samples, p)
}

// SampleCount returns the number of peers currently contributing a sample.
func (a *Adjusted) SampleCount() int {
	return len(a.samples)
}

// Now returns the local wall-clock time plus the clamped median offset.
func (a *Adjusted) Now() time.Time {
	return a.source.Now().Add(time.Duration(a.Offset()) * time.Second)
}

// Offset returns the current median of all samples, clamped to
// ±MaxAdjustment. Ties on an even sample count resolve to the lower of the
// two middle elements, matching the spec's deterministic tie-break.
func (a *Adjusted) Offset() int64 {
	if len(a.samples) == 0 {
		return 0
	}

	values := make([]int64, 0, len(a.samples))
	for _, v := range a.samples {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	n := len(values)
	var median int64
	if n%2 == 1 {
		median = values[n/2]
	} else {
		median = values[n/2-1]
	}

	return clamp(median, -MaxAdjustment, MaxAdjustment)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
