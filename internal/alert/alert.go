// Package alert implements the per-device alert lifecycle: creation on a
// qualifying detection, deduplication against the device's open alert,
// and the acknowledge/resolve/false-alarm transitions.
package alert

import (
	"errors"
	"fmt"
	"time"

	"github.com/guardband-io/distress.engine/internal/fusion"
)

// Status is an alert's lifecycle state.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
	StatusFalseAlarm   Status = "FALSE_ALARM"
)

// Severity grades an alert by its fused score.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

var (
	// ErrInvalidTransition indicates a lifecycle transition attempted
	// from a terminal or mismatched state. The alert is left unchanged.
	ErrInvalidTransition = errors.New("invalid alert transition")

	// ErrNotFound indicates the requested alert does not exist.
	ErrNotFound = errors.New("alert not found")
)

// Position is an optional GPS fix attached to an alert.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Alert is one distress alert for one device.
type Alert struct {
	ID            string        `json:"alert_id"`
	DeviceID      string        `json:"device_id"`
	Status        Status        `json:"status"`
	Severity      Severity      `json:"severity"`
	Reason        fusion.Reason `json:"reason"`
	CombinedScore float64       `json:"combined_score"`
	Confidence    float64       `json:"confidence"`
	ModelVersion  string        `json:"model_version,omitempty"`
	Position      *Position     `json:"position,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	// ResolvedAt is set once, when the alert reaches a terminal state.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// transitions lists the legal lifecycle moves. RESOLVED and FALSE_ALARM
// are terminal.
var transitions = map[Status][]Status{
	StatusNew:          {StatusAcknowledged, StatusResolved, StatusFalseAlarm},
	StatusAcknowledged: {StatusResolved},
}

// CanTransition reports whether an alert in state from may move to state to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusAcknowledged, StatusResolved, StatusFalseAlarm:
		return true
	}
	return false
}

// checkTransition returns ErrInvalidTransition with context when the move
// is illegal.
func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
