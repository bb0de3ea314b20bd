package payload

// ServiceFlag is a bitmask of services a node advertises in its version
// message.
type ServiceFlag uint64

// Service flags used by this core. Other bits may be set by peers; they are
// preserved on the wire but not interpreted.
const (
	ServiceNone           ServiceFlag = 0
	ServiceNetwork        ServiceFlag = 1 << 0
	ServiceCompactFilters ServiceFlag = 1 << 6
)
