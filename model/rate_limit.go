package model

import "time"

// RouteLimit is the admission budget for one endpoint: at most MaxCalls
// requests per client identity inside Window. A breach blocks the identity
// for one further Window.
type RouteLimit struct {
	Endpoint    string
	MaxCalls    int
	Window      time.Duration
	Description string
}
