package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// memStore is an in-memory IntentStore with the same update semantics as
// the bun store.
type memStore struct {
	mu        sync.Mutex
	now       func() time.Time
	nextID    int64
	nextJobID int64
	intents   map[int64]*models.PaymentIntent
	events    map[int64][]models.IntentEvent
	keys      map[string]*models.IdempotencyKey
	jobs      map[int64]*models.ReconcileJob
	users     map[int64]*models.PortalUser
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now:     now,
		intents: map[int64]*models.PaymentIntent{},
		events:  map[int64][]models.IntentEvent{},
		keys:    map[string]*models.IdempotencyKey{},
		jobs:    map[int64]*models.ReconcileJob{},
		users:   map[int64]*models.PortalUser{},
	}
}

func clone(intent *models.PaymentIntent) *models.PaymentIntent {
	c := *intent
	return &c
}

func (s *memStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent, events ...models.IntentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.intents {
		if existing.Token == intent.Token {
			return service.ErrDuplicateToken
		}
	}
	s.nextID++
	intent.ID = s.nextID
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = s.now()
	}
	s.intents[intent.ID] = clone(intent)
	for _, ev := range events {
		ev.IntentID = intent.ID
		s.events[intent.ID] = append(s.events[intent.ID], ev)
	}
	return nil
}

func (s *memStore) find(match func(*models.PaymentIntent) bool) (*models.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, intent := range s.intents {
		if match(intent) {
			return clone(intent), nil
		}
	}
	return nil, service.ErrIntentNotFound
}

func (s *memStore) GetIntentByID(ctx context.Context, id int64) (*models.PaymentIntent, error) {
	return s.find(func(i *models.PaymentIntent) bool { return i.ID == id })
}

func (s *memStore) GetIntentByToken(ctx context.Context, token string) (*models.PaymentIntent, error) {
	if token == "" {
		return nil, service.ErrIntentNotFound
	}
	return s.find(func(i *models.PaymentIntent) bool { return i.Token == token })
}

func (s *memStore) GetIntentByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentIntent, error) {
	if orderID == "" {
		return nil, service.ErrIntentNotFound
	}
	return s.find(func(i *models.PaymentIntent) bool { return i.GatewayOrderID == orderID })
}

func (s *memStore) UpdateIntent(ctx context.Context, id int64, upd service.IntentUpdate) (*service.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.intents[id]
	if !ok {
		return nil, service.ErrIntentNotFound
	}
	intent := clone(stored)
	res := service.ApplyIntentUpdate(intent, upd, s.now())
	s.intents[id] = clone(intent)
	s.events[id] = append(s.events[id], res.Events...)
	return &res, nil
}

func (s *memStore) ListIntents(ctx context.Context, filter service.IntentFilter) ([]models.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.PaymentIntent{}
	for _, intent := range s.intents {
		if filter.Status != "" && intent.Status != filter.Status {
			continue
		}
		if filter.BookingID > 0 && intent.BookingID != filter.BookingID {
			continue
		}
		if filter.NonTerminal && intent.Status.IsTerminal() {
			continue
		}
		if !filter.UpdatedBefore.IsZero() {
			updated := intent.CreatedAt
			if !intent.UpdatedAt.IsZero() {
				updated = intent.UpdatedAt.Time
			}
			if !updated.Before(filter.UpdatedBefore) {
				continue
			}
		}
		if filter.MailPaymentUnsent && !intent.MailPaymentSentAt.IsZero() {
			continue
		}
		if _, hasJob := s.jobs[intent.ID]; filter.WithoutJob && hasJob {
			continue
		}
		out = append(out, *intent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) ListIntentEvents(ctx context.Context, intentID int64) ([]models.IntentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IntentEvent{}, s.events[intentID]...), nil
}

func (s *memStore) eventsOf(intentID int64, kind models.IntentEventKind) []models.IntentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.IntentEvent{}
	for _, ev := range s.events[intentID] {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func keyID(intentID int64, operation string) string {
	return fmt.Sprintf("%d/%s", intentID, operation)
}

func (s *memStore) AcquireIdempotencyKey(ctx context.Context, intentID int64, operation string, lease time.Duration) (*models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	existing, ok := s.keys[keyID(intentID, operation)]
	if ok {
		switch {
		case existing.Status == models.IdempotencyStatusCompleted:
			c := *existing
			return &c, service.ErrAlreadyCompleted
		case existing.Status == models.IdempotencyStatusInProgress && existing.LockedUntil.Time.After(now):
			c := *existing
			return &c, service.ErrIdempotencyInProgress
		}
	}
	key := &models.IdempotencyKey{
		IntentID:    intentID,
		Operation:   operation,
		Status:      models.IdempotencyStatusInProgress,
		Owner:       uuid.New(),
		LockedUntil: bun.NullTime{Time: now.Add(lease)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.keys[keyID(intentID, operation)] = key
	c := *key
	return &c, nil
}

func (s *memStore) finish(key *models.IdempotencyKey, status, result, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.keys[keyID(key.IntentID, key.Operation)]
	if !ok || stored.Owner != key.Owner {
		return fmt.Errorf("idempotency key %d/%s is no longer owned", key.IntentID, key.Operation)
	}
	stored.Status = status
	stored.Result = result
	stored.Error = cause
	stored.LockedUntil = bun.NullTime{}
	return nil
}

func (s *memStore) CompleteIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, result string) error {
	return s.finish(key, models.IdempotencyStatusCompleted, result, "")
}

func (s *memStore) FailIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, cause string) error {
	return s.finish(key, models.IdempotencyStatusFailed, "", cause)
}

func (s *memStore) key(intentID int64, operation string) *models.IdempotencyKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[keyID(intentID, operation)]
}

func (s *memStore) ScheduleReconcile(ctx context.Context, intentID int64, runAt time.Time, once bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[intentID]; ok {
		if once {
			return false, nil
		}
		job.RunAt = runAt
		job.LockedUntil = bun.NullTime{}
		return true, nil
	}
	s.nextJobID++
	s.jobs[intentID] = &models.ReconcileJob{ID: s.nextJobID, IntentID: intentID, RunAt: runAt, CreatedAt: s.now()}
	return true, nil
}

func (s *memStore) ClaimDueReconcileJobs(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.ReconcileJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := []*models.ReconcileJob{}
	for _, job := range s.jobs {
		if job.RunAt.After(now) {
			continue
		}
		if !job.LockedUntil.IsZero() && !job.LockedUntil.Time.Before(now) {
			continue
		}
		due = append(due, job)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	out := []models.ReconcileJob{}
	for _, job := range due {
		if len(out) == limit {
			break
		}
		job.LockedUntil = bun.NullTime{Time: now.Add(lease)}
		out = append(out, *job)
	}
	return out, nil
}

func (s *memStore) CompleteReconcileJob(ctx context.Context, job models.ReconcileJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.IntentID]
	if ok && stored.ID == job.ID && !stored.LockedUntil.IsZero() {
		delete(s.jobs, job.IntentID)
	}
	return nil
}

func (s *memStore) GetReconcileJob(ctx context.Context, intentID int64) (*models.ReconcileJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[intentID]
	if !ok {
		return nil, nil
	}
	c := *job
	return &c, nil
}

func (s *memStore) GetPortalUser(ctx context.Context, id int64) (*models.PortalUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

func (s *memStore) UpsertPortalUser(ctx context.Context, user *models.PortalUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *user
	s.users[user.ID] = &c
	return nil
}

var _ service.IntentStore = (*memStore)(nil)
