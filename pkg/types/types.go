// Package types provides core types and limits for the call center
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Hard limits of the console.
const (
	MaxAgentCount          = 5
	DefaultMaxCallDuration = 200
	// MaxCallDurationCeiling bounds max_call_duration when configured.
	MaxCallDurationCeiling = 3600
	MaxCallerName          = 50
	MaxPhoneNumber         = 15
	DefaultStorePath       = "call_center_data.dat"
)

// Priority is a call tier. Lower values take precedence.
type Priority int

const (
	PriorityVIP Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// Priorities lists every tier in precedence order.
var Priorities = []Priority{PriorityVIP, PriorityHigh, PriorityMedium, PriorityLow}

// IsValid reports whether p is a recognized tier
func (p Priority) IsValid() bool {
	return p >= PriorityVIP && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityVIP:
		return "VIP"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// ParsePriority accepts a tier name (case-insensitive) or its digit 0-3.
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "vip":
		return PriorityVIP, nil
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || !Priority(n).IsValid() {
		return 0, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
	}
	return Priority(n), nil
}

// Call is one caller interaction waiting for, or owned by, an agent.
type Call struct {
	ID          int64
	Priority    Priority
	Duration    int // seconds
	CallerName  string
	PhoneNumber string
	EnqueuedAt  time.Time
}

// CallRequest carries the caller-supplied attributes of a new call
type CallRequest struct {
	Priority    Priority
	Duration    int
	CallerName  string
	PhoneNumber string
}

// AgentStatus represents where an agent is in its work cycle
type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "available"
	AgentStatusBusy      AgentStatus = "busy"
)

// String returns the display form used by reports.
func (s AgentStatus) String() string {
	switch s {
	case AgentStatusAvailable:
		return "Available"
	case AgentStatusBusy:
		return "Busy"
	default:
		return string(s)
	}
}

// CallSnapshot is the reporting view of a queued call
type CallSnapshot struct {
	ID          int64
	Priority    Priority
	CallerName  string
	PhoneNumber string
	Duration    int
	EnqueuedAt  time.Time
}

// AgentSnapshot is the reporting view of an agent.
// CurrentCallID and CurrentCaller are only meaningful when Status is busy.
type AgentSnapshot struct {
	ID            int
	Status        AgentStatus
	CurrentCallID int64
	CurrentCaller string
	CallsHandled  int
	TimeSpent     int // seconds
}

// AgentRecord is the persisted form of an agent
type AgentRecord struct {
	ID            int
	Status        AgentStatus
	CurrentCallID int64 // -1 when idle
	CurrentCaller string
	CallsHandled  int
	TimeSpent     int
}

// ReleaseKind classifies the outcome of a release request
type ReleaseKind string

const (
	ReleaseKindReleased         ReleaseKind = "released"
	ReleaseKindAlreadyAvailable ReleaseKind = "already_available"
)

// ReleaseOutcome reports what a release request did.
type ReleaseOutcome struct {
	Kind    ReleaseKind
	AgentID int
	CallID  int64 // interrupted call, set when Kind is released
}
