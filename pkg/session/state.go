package session

// State is the connection state of a session.
//
//	Idle -> Connecting -> ServiceDiscovery -> Ready
//	Connecting -> Failed (platform failure or timeout)
//	ServiceDiscovery -> Failed
//
// Disconnect returns any state to Idle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateServiceDiscovery
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateServiceDiscovery:
		return "service_discovery"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attemptActive reports whether a connection attempt is still running.
func (s State) attemptActive() bool {
	return s == StateConnecting || s == StateServiceDiscovery
}
