package intent

import (
	"context"
	"time"

	"github.com/HerbHall/netweave/internal/snapshot"
	"github.com/HerbHall/netweave/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements the intent lifecycle on top of IntentStore.
type Service struct {
	store  *IntentStore
	bus    plugin.EventBus
	logger *zap.Logger
}

// NewService creates the intent lifecycle service. bus may be nil in tests.
func NewService(store *IntentStore, bus plugin.EventBus, logger *zap.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// CreateInput holds the fields for a new draft intent.
type CreateInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Type          string `json:"intent_type"`
	DeviceID      string `json:"device_id"`
	Configuration string `json:"configuration"`
	CreatedBy     string `json:"created_by"`
}

// Create stores a new intent in draft status. The configuration hash is
// computed here so drift comparison always uses the canonical form.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Intent, error) {
	if in.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !ValidType(in.Type) {
		return nil, &ValidationError{Field: "intent_type", Reason: "unknown intent type"}
	}
	if in.DeviceID == "" {
		return nil, &ValidationError{Field: "device_id", Reason: "must not be empty"}
	}
	if in.CreatedBy == "" {
		return nil, &ValidationError{Field: "created_by", Reason: "must not be empty"}
	}

	now := time.Now().UTC()
	it := &Intent{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Description:   in.Description,
		Type:          in.Type,
		Status:        StatusDraft,
		DeviceID:      in.DeviceID,
		Configuration: in.Configuration,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Configuration != "" {
		it.ConfigurationHash = snapshot.HashConfiguration(in.Configuration)
	}

	if err := s.store.Insert(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Get returns an intent by ID.
func (s *Service) Get(ctx context.Context, id string) (*Intent, error) {
	return s.store.Get(ctx, id)
}

// List returns intents matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Intent, error) {
	return s.store.List(ctx, f)
}

// Submit moves a draft intent into review. Requires a non-empty
// configuration: an intent with nothing to deploy cannot be reviewed.
func (s *Service) Submit(ctx context.Context, id string) (*Intent, error) {
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := Next(it.Status, EventSubmit)
	if !ok {
		return nil, &InvalidTransitionError{Current: it.Status, Event: EventSubmit}
	}
	if it.Configuration == "" {
		return nil, &ValidationError{Field: "configuration", Reason: "must not be empty at submit"}
	}
	return s.transition(ctx, it, next)
}

// Approve moves a pending intent to approved, recording the actor.
// Approving an already-approved intent is a no-op success.
func (s *Service) Approve(ctx context.Context, id, actor string) (*Intent, error) {
	if actor == "" {
		return nil, &ValidationError{Field: "approved_by", Reason: "must not be empty"}
	}

	it, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Status == StatusApproved {
		return it, nil
	}
	if _, ok := Next(it.Status, EventApprove); !ok {
		return nil, &InvalidTransitionError{Current: it.Status, Event: EventApprove}
	}

	now := time.Now().UTC()
	won, err := s.store.Approve(ctx, id, actor, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race. If the winner was another approve, this call
		// still succeeds under approve idempotency.
		cur, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur.Status == StatusApproved {
			return cur, nil
		}
		return nil, ErrConflict
	}

	it.Status = StatusApproved
	it.ApprovedBy = &actor
	it.UpdatedAt = now
	return it, nil
}

// Reject moves a pending intent to its terminal rejected status.
func (s *Service) Reject(ctx context.Context, id string) (*Intent, error) {
	return s.apply(ctx, id, EventReject)
}

// Deploy marks an approved intent as running on its device. The deployment
// record and status change commit atomically; the intent.deployed event is
// published only for the winning caller.
func (s *Service) Deploy(ctx context.Context, id string) (*Intent, error) {
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := Next(it.Status, EventDeploy); !ok {
		return nil, &InvalidTransitionError{Current: it.Status, Event: EventDeploy}
	}

	now := time.Now().UTC()
	won, err := s.store.Deploy(ctx, it, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrConflict
	}

	it.Status = StatusDeployed
	it.DeployedAt = &now
	it.UpdatedAt = now

	if s.bus != nil {
		s.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicDeployed,
			Source:    "intent",
			Timestamp: now,
			Payload: &DeployedEvent{
				IntentID:          it.ID,
				DeviceID:          it.DeviceID,
				ConfigurationHash: it.ConfigurationHash,
				DeployedAt:        now,
			},
		})
	}
	return it, nil
}

// Fail marks a deployed intent as failed. The deployment record is kept:
// the device is still expected to run this configuration until a newer
// deploy supersedes it.
func (s *Service) Fail(ctx context.Context, id string) (*Intent, error) {
	return s.apply(ctx, id, EventFail)
}

// Rollback marks a deployed intent as rolled back.
func (s *Service) Rollback(ctx context.Context, id string) (*Intent, error) {
	return s.apply(ctx, id, EventRollback)
}

// apply runs a plain status transition for the given event.
func (s *Service) apply(ctx context.Context, id string, event Event) (*Intent, error) {
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := Next(it.Status, event)
	if !ok {
		return nil, &InvalidTransitionError{Current: it.Status, Event: event}
	}
	return s.transition(ctx, it, next)
}

func (s *Service) transition(ctx context.Context, it *Intent, to Status) (*Intent, error) {
	now := time.Now().UTC()
	won, err := s.store.TransitionStatus(ctx, it.ID, it.Status, to, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrConflict
	}

	s.logger.Info("intent transitioned",
		zap.String("intent_id", it.ID),
		zap.String("from", string(it.Status)),
		zap.String("to", string(to)),
	)

	it.Status = to
	it.UpdatedAt = now
	return it, nil
}
