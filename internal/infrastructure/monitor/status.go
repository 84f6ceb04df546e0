package monitor

import (
	"errors"
	"time"
)

// ComponentStatus is the outcome of the latest probe of one dependency.
type ComponentStatus struct {
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
	Detail   int    `json:"detail,omitempty"`
}

type Status struct {
	Online     bool                       `json:"online"`
	Components map[string]ComponentStatus `json:"components"`
	LastCheck  time.Time                  `json:"last_check"`
}

var errNotConfigured = errors.New("not configured")
