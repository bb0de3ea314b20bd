package clock

import (
	"testing"
	"time"

	"github.com/nakamoto-go/nakamoto/internal/peer"
	"github.com/stretchr/testify/require"
)

type fixedSource struct{ t time.Time }

func (f fixedSource) Now() time.Time { return f.t }

func TestOffsetMedianOddCount(t *testing.T) {
	c := New(fixedSource{})
	c.AddSample("a", 10)
	c.AddSample("b", 20)
	c.AddSample("c", 30)
	require.Equal(t, int64(20), c.Offset())
}

func TestOffsetMedianEvenCountTakesLower(t *testing.T) {
	c := New(fixedSource{})
	c.AddSample("a", 10)
	c.AddSample("b", 20)
	c.AddSample("c", 30)
	c.AddSample("d", 40)
	require.Equal(t, int64(20), c.Offset())
}

func TestOffsetClampsToMaxAdjustment(t *testing.T) {
	c := New(fixedSource{})
	c.AddSample("a", 100000)
	require.Equal(t, int64(MaxAdjustment), c.Offset())

	c.AddSample("b", -100000)
	c.RemoveSample("a")
	require.Equal(t, int64(-MaxAdjustment), c.Offset())
}

func TestRemoveSampleRetracts(t *testing.T) {
	c := New(fixedSource{})
	c.AddSample(peer.ID("a"), 50)
	require.Equal(t, 1, c.SampleCount())
	c.RemoveSample(peer.ID("a"))
	require.Equal(t, 0, c.SampleCount())
	require.Equal(t, int64(0), c.Offset())
}

func TestNowAddsOffset(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(fixedSource{t: base})
	c.AddSample("a", 30)
	require.Equal(t, base.Add(30*time.Second), c.Now())
}
