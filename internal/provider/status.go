package provider

// Status is the lifecycle state of a dispatched prompt.
type Status int

// Lifecycle states. A call moves sending -> processing -> received|error.
const (
	StatusIdle Status = iota
	StatusSending
	StatusProcessing
	StatusReceived
	StatusError
)

var statusNames = [...]string{"idle", "sending", "processing", "received", "error"}

// String returns the lowercase state name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Terminal reports whether no further transition follows.
func (s Status) Terminal() bool {
	return s == StatusReceived || s == StatusError
}
