package sweep

import (
	"fmt"
	"strings"
)

// Route selects how the engine is driven for each scenario.
type Route int

const (
	RouteDirect     Route = 0
	RouteCompliance Route = 1
)

func (r Route) Valid() bool {
	return r == RouteDirect || r == RouteCompliance
}

func (r Route) String() string {
	switch r {
	case RouteDirect:
		return "direct"
	case RouteCompliance:
		return "compliance"
	default:
		return "unknown"
	}
}

// ParseRoute accepts the route name or its numeric flag.
func ParseRoute(s string) (Route, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "0":
		return RouteDirect, nil
	case "compliance", "1":
		return RouteCompliance, nil
	default:
		return Route(-1), fmt.Errorf("%w: %q", ErrInvalidRoute, s)
	}
}

// State is the lifecycle of a sweep as seen by controllers.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
