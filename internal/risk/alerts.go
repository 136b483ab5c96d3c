package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"floodwatch/internal/types"
)

// AlertStore abstracts alert persistence for the lifecycle manager.
// Satisfied by db.AlertRepository.
type AlertStore interface {
	// FindActiveByHazard returns the active alert for the hazard type, or
	// nil when none exists.
	FindActiveByHazard(ctx context.Context, hazard types.Parameter) (*types.Alert, error)
	Create(ctx context.Context, alert *types.Alert) error
	// Escalate raises severity and replaces the description; the store only
	// applies it when the stored severity is lower.
	Escalate(ctx context.Context, id string, severity types.Tier, description string) (*types.Alert, error)
}

// ThresholdStore abstracts threshold configuration reads.
// Satisfied by db.ThresholdRepository.
type ThresholdStore interface {
	Get(ctx context.Context, parameter types.Parameter) (*types.ThresholdSet, error)
	List(ctx context.Context) ([]types.ThresholdSet, error)
}

// EventPublisher fans alert lifecycle events out to the notification queue.
// Publishing is best-effort; a publish failure never fails the reading path.
type EventPublisher interface {
	PublishAlertEvent(ctx context.Context, event types.AlertEvent) error
}

// LifecycleManager enforces the standing-alert invariant: at most one active
// alert per hazard type, escalated in place and never downgraded or closed by
// this engine.
//
// The find-or-create/escalate sequence is a critical section. Concurrent
// readings for the same hazard must not race into duplicate alerts or partial
// escalations, so the manager serializes per hazard type with its own mutex;
// readings for different hazards proceed in parallel.
type LifecycleManager struct {
	alerts     AlertStore
	thresholds ThresholdStore
	areas      AreaStore
	publisher  EventPublisher // may be nil
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[types.Parameter]*sync.Mutex
}

// NewLifecycleManager creates a LifecycleManager. publisher may be nil.
func NewLifecycleManager(alerts AlertStore, thresholds ThresholdStore, areas AreaStore, publisher EventPublisher, logger *slog.Logger) *LifecycleManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleManager{
		alerts:     alerts,
		thresholds: thresholds,
		areas:      areas,
		publisher:  publisher,
		logger:     logger,
		locks:      make(map[types.Parameter]*sync.Mutex),
	}
}

func (m *LifecycleManager) hazardLock(hazard types.Parameter) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[hazard]
	if !ok {
		l = &sync.Mutex{}
		m.locks[hazard] = l
	}
	return l
}

// RecordReading classifies a new reading against the hazard's threshold
// ladder and creates or escalates the standing alert as warranted. Returns
// the alert touched, or nil when the reading stays at tier 0.
//
// An unconfigured parameter is a NotFound error: classification is
// unavailable, which callers must not confuse with "normal".
func (m *LifecycleManager) RecordReading(ctx context.Context, parameter types.Parameter, value float64) (*types.Alert, error) {
	ts, err := m.thresholds.Get(ctx, parameter)
	if err != nil {
		return nil, err
	}

	tier := Classify(&value, *ts)
	if tier == types.TierNormal {
		return nil, nil
	}

	lock := m.hazardLock(parameter)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.alerts.FindActiveByHazard(ctx, parameter)
	if err != nil {
		return nil, err
	}

	description := alertDescription(parameter, value, ts.Unit, tier)

	if existing != nil {
		if tier <= existing.Severity {
			return existing, nil
		}
		prev := existing.Severity
		updated, err := m.alerts.Escalate(ctx, existing.ID, tier, description)
		if err != nil {
			return nil, err
		}
		m.logger.InfoContext(ctx, "alert escalated",
			"alert_id", updated.ID,
			"hazard", string(parameter),
			"from", prev.String(),
			"to", updated.Severity.String(),
		)
		m.publish(ctx, types.AlertEvent{
			EventID:      uuid.NewString(),
			Kind:         "escalated",
			AlertID:      updated.ID,
			HazardType:   parameter,
			Severity:     updated.Severity,
			PrevSeverity: prev,
			Value:        value,
			OccurredAt:   time.Now().UTC(),
		})
		return updated, nil
	}

	// No standing alert: create one and attach the full area set. This path
	// does no area targeting; the resolver refines areas on the read side.
	allAreas, err := m.areas.ListAreas(ctx, types.GlobalScope())
	if err != nil {
		return nil, err
	}
	areaIDs := make([]string, 0, len(allAreas))
	for _, a := range allAreas {
		areaIDs = append(areaIDs, a.ID)
	}

	alert := &types.Alert{
		ID:              "alt_" + uuid.NewString(),
		HazardType:      parameter,
		Title:           fmt.Sprintf("%s Alert: %s", parameterTitle(parameter), tier.String()),
		Description:     description,
		Severity:        tier,
		Active:          true,
		AffectedAreaIDs: areaIDs,
	}
	if err := m.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "alert created",
		"alert_id", alert.ID,
		"hazard", string(parameter),
		"severity", alert.Severity.String(),
	)
	m.publish(ctx, types.AlertEvent{
		EventID:    uuid.NewString(),
		Kind:       "created",
		AlertID:    alert.ID,
		HazardType: parameter,
		Severity:   alert.Severity,
		Value:      value,
		OccurredAt: time.Now().UTC(),
	})
	return alert, nil
}

func (m *LifecycleManager) publish(ctx context.Context, event types.AlertEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishAlertEvent(ctx, event); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish alert event",
			"event_id", event.EventID,
			"alert_id", event.AlertID,
			"error", err,
		)
	}
}

func alertDescription(parameter types.Parameter, value float64, unit string, tier types.Tier) string {
	return fmt.Sprintf("%s has reached %g %s, which exceeds the %s threshold.",
		parameterTitle(parameter), value, unit, tier.String())
}

// parameterTitle renders "water_level" as "Water Level" for alert copy.
func parameterTitle(p types.Parameter) string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
