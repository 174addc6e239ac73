package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guardband-io/distress.engine/internal/fusion"
)

// Detection is a qualifying fusion outcome handed to the state machine.
type Detection struct {
	DeviceID     string
	EventID      string
	Result       fusion.Result
	Position     *Position
	ModelVersion string
}

// Transition describes what the state machine did with a detection.
type Transition struct {
	Alert *Alert `json:"alert"`
	// Created is true when this detection opened a new alert; false when
	// the event was attached to the device's existing open alert.
	Created bool `json:"created"`
}

// Manager serializes the open-alert lookup and creation per device so
// that at most one NEW alert can exist for a device at any time.
type Manager struct {
	store             Store
	severityThreshold float64
	log               *zap.Logger

	mu      sync.Mutex
	devices map[string]*sync.Mutex
}

// NewManager returns a state machine over the given store. Alerts at or
// above severityThreshold are graded HIGH, the rest MEDIUM.
func NewManager(store Store, severityThreshold float64, log *zap.Logger) *Manager {
	return &Manager{
		store:             store,
		severityThreshold: severityThreshold,
		log:               log,
		devices:           make(map[string]*sync.Mutex),
	}
}

// deviceLock returns the mutex serializing alert handling for one device.
func (m *Manager) deviceLock(deviceID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.devices[deviceID]
	if !ok {
		l = &sync.Mutex{}
		m.devices[deviceID] = l
	}
	return l
}

// HandleDetection applies a detection to the device's alert state. A
// non-detection returns (nil, nil). A detection either opens a new alert
// or attaches the event as evidence to the device's existing open alert;
// the check-then-create sequence runs under the device's lock.
func (m *Manager) HandleDetection(d Detection) (*Transition, error) {
	if !d.Result.StressDetected {
		return nil, nil
	}

	lock := m.deviceLock(d.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	open, err := m.store.OpenAlert(d.DeviceID)
	if err != nil {
		return nil, err
	}

	if open != nil {
		if err := m.store.AttachEvent(open.ID, d.EventID); err != nil {
			return nil, err
		}
		if d.Position != nil {
			if err := m.store.UpdatePosition(open.ID, *d.Position); err != nil {
				return nil, err
			}
			open.Position = d.Position
		}
		m.log.Info("detection attached to open alert",
			zap.String("device_id", d.DeviceID),
			zap.String("alert_id", open.ID),
			zap.String("event_id", d.EventID))
		return &Transition{Alert: open, Created: false}, nil
	}

	severity := SeverityMedium
	if d.Result.CombinedScore >= m.severityThreshold {
		severity = SeverityHigh
	}

	now := time.Now().UTC()
	a := &Alert{
		ID:            uuid.NewString(),
		DeviceID:      d.DeviceID,
		Status:        StatusNew,
		Severity:      severity,
		Reason:        d.Result.Reason,
		CombinedScore: d.Result.CombinedScore,
		Confidence:    d.Result.Confidence,
		ModelVersion:  d.ModelVersion,
		Position:      d.Position,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.InsertAlert(a); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	if err := m.store.AttachEvent(a.ID, d.EventID); err != nil {
		return nil, err
	}

	m.log.Info("alert created",
		zap.String("device_id", d.DeviceID),
		zap.String("alert_id", a.ID),
		zap.String("severity", string(severity)),
		zap.String("reason", string(a.Reason)),
		zap.Float64("combined_score", d.Result.CombinedScore))
	return &Transition{Alert: a, Created: true}, nil
}

// Acknowledge moves a NEW alert to ACKNOWLEDGED.
func (m *Manager) Acknowledge(alertID string) (*Alert, error) {
	return m.transition(alertID, StatusAcknowledged)
}

// Resolve closes an alert from NEW or ACKNOWLEDGED.
func (m *Manager) Resolve(alertID string) (*Alert, error) {
	return m.transition(alertID, StatusResolved)
}

// FalseAlarm closes a NEW alert as a false positive.
func (m *Manager) FalseAlarm(alertID string) (*Alert, error) {
	return m.transition(alertID, StatusFalseAlarm)
}

// ApplyTransition moves an alert to the named state, enforcing lifecycle
// legality.
func (m *Manager) ApplyTransition(alertID string, to Status) (*Alert, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	return m.transition(alertID, to)
}

func (m *Manager) transition(alertID string, to Status) (*Alert, error) {
	a, err := m.store.UpdateStatus(alertID, to)
	if err != nil {
		return nil, err
	}
	m.log.Info("alert transitioned",
		zap.String("alert_id", alertID),
		zap.String("device_id", a.DeviceID),
		zap.String("status", string(to)))
	return a, nil
}
