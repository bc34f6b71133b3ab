package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// BunIntentStore is the Postgres IntentStore.
type BunIntentStore struct {
	DB *bun.DB
}

func NewBunIntentStore(db *bun.DB) *BunIntentStore {
	return &BunIntentStore{DB: db}
}

func (s *BunIntentStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent, events ...models.IntentEvent) error {
	return s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(intent).Returning("*").Exec(ctx); err != nil {
			if isUniqueViolation(err, "token") {
				return ErrDuplicateToken
			}
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for i := range events {
			events[i].IntentID = intent.ID
			if events[i].UUID == uuid.Nil {
				events[i].UUID = uuid.New()
			}
		}
		_, err := tx.NewInsert().Model(&events).Exec(ctx)
		return err
	})
}

func (s *BunIntentStore) GetIntentByID(ctx context.Context, id int64) (*models.PaymentIntent, error) {
	return s.getIntent(ctx, "id = ?", id)
}

func (s *BunIntentStore) GetIntentByToken(ctx context.Context, token string) (*models.PaymentIntent, error) {
	if token == "" {
		return nil, ErrIntentNotFound
	}
	return s.getIntent(ctx, "token = ?", token)
}

func (s *BunIntentStore) GetIntentByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentIntent, error) {
	if orderID == "" {
		return nil, ErrIntentNotFound
	}
	return s.getIntent(ctx, "gateway_order_id = ?", orderID)
}

func (s *BunIntentStore) getIntent(ctx context.Context, where string, arg interface{}) (*models.PaymentIntent, error) {
	intent := &models.PaymentIntent{}
	err := s.DB.NewSelect().Model(intent).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// UpdateIntent locks the row, applies the update in memory and writes it
// back together with the new events.
func (s *BunIntentStore) UpdateIntent(ctx context.Context, id int64, upd IntentUpdate) (*UpdateResult, error) {
	var result UpdateResult
	err := s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		intent := &models.PaymentIntent{}
		err := tx.NewSelect().Model(intent).Where("id = ?", id).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrIntentNotFound
		}
		if err != nil {
			return err
		}

		result = ApplyIntentUpdate(intent, upd, time.Now())
		if _, err := tx.NewUpdate().Model(intent).WherePK().Exec(ctx); err != nil {
			return err
		}
		if len(result.Events) > 0 {
			if _, err := tx.NewInsert().Model(&result.Events).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *BunIntentStore) ListIntents(ctx context.Context, filter IntentFilter) ([]models.PaymentIntent, error) {
	intents := []models.PaymentIntent{}
	query := s.DB.NewSelect().Model(&intents).Order("id DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BookingID > 0 {
		query = query.Where("booking_id = ?", filter.BookingID)
	}
	if filter.NonTerminal {
		query = query.Where("status NOT IN (?)", bun.In([]models.IntentStatus{models.IntentStatusReconciled, models.IntentStatusFailed}))
	}
	if !filter.UpdatedBefore.IsZero() {
		query = query.Where("COALESCE(updated_at, created_at) < ?", filter.UpdatedBefore)
	}
	if filter.MailPaymentUnsent {
		query = query.Where("mail_payment_sent_at IS NULL")
	}
	if filter.WithoutJob {
		query = query.Where("NOT EXISTS (SELECT 1 FROM reconcile_jobs AS rj WHERE rj.intent_id = payment_intent.id)")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return intents, nil
}

func (s *BunIntentStore) ListIntentEvents(ctx context.Context, intentID int64) ([]models.IntentEvent, error) {
	events := []models.IntentEvent{}
	err := s.DB.NewSelect().Model(&events).Where("intent_id = ?", intentID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// AcquireIdempotencyKey takes ownership of (intent, operation). A completed
// key is returned with ErrAlreadyCompleted, a key held by someone else with
// a live lease with ErrIdempotencyInProgress. Failed keys and expired leases
// are taken over.
func (s *BunIntentStore) AcquireIdempotencyKey(ctx context.Context, intentID int64, operation string, lease time.Duration) (*models.IdempotencyKey, error) {
	now := time.Now()
	key := &models.IdempotencyKey{
		IntentID:    intentID,
		Operation:   operation,
		Status:      models.IdempotencyStatusInProgress,
		Owner:       uuid.New(),
		LockedUntil: bun.NullTime{Time: now.Add(lease)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var acquired *models.IdempotencyKey
	err := s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().Model(key).On("CONFLICT (intent_id, operation) DO NOTHING").Exec(ctx)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 1 {
			acquired = key
			return nil
		}

		existing := &models.IdempotencyKey{}
		err = tx.NewSelect().Model(existing).
			Where("intent_id = ?", intentID).
			Where("operation = ?", operation).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return err
		}
		acquired = existing
		switch {
		case existing.Status == models.IdempotencyStatusCompleted:
			return ErrAlreadyCompleted
		case existing.Status == models.IdempotencyStatusInProgress && existing.LockedUntil.Time.After(now):
			return ErrIdempotencyInProgress
		}

		existing.Status = models.IdempotencyStatusInProgress
		existing.Owner = key.Owner
		existing.Error = ""
		existing.LockedUntil = key.LockedUntil
		existing.UpdatedAt = now
		_, err = tx.NewUpdate().Model(existing).WherePK().Exec(ctx)
		return err
	})
	if errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrIdempotencyInProgress) {
		return acquired, err
	}
	if err != nil {
		return nil, err
	}
	return acquired, nil
}

func (s *BunIntentStore) CompleteIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, result string) error {
	return s.finishIdempotencyKey(ctx, key, models.IdempotencyStatusCompleted, result, "")
}

func (s *BunIntentStore) FailIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, cause string) error {
	return s.finishIdempotencyKey(ctx, key, models.IdempotencyStatusFailed, "", cause)
}

func (s *BunIntentStore) finishIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, status, result, cause string) error {
	res, err := s.DB.NewUpdate().Model((*models.IdempotencyKey)(nil)).
		Set("status = ?", status).
		Set("result = ?", nullString(result)).
		Set("error = ?", nullString(cause)).
		Set("locked_until = NULL").
		Set("updated_at = ?", time.Now()).
		Where("intent_id = ?", key.IntentID).
		Where("operation = ?", key.Operation).
		Where("owner = ?", key.Owner).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("idempotency key %d/%s is no longer owned by %s", key.IntentID, key.Operation, key.Owner)
	}
	key.Status = status
	key.Result = result
	key.Error = cause
	key.LockedUntil = bun.NullTime{}
	return nil
}

// ScheduleReconcile arms the single reconcile job of an intent. With once
// set an existing job is left alone, otherwise its run_at is moved and its
// lease dropped so that the worker holding it does not delete it.
func (s *BunIntentStore) ScheduleReconcile(ctx context.Context, intentID int64, runAt time.Time, once bool) (bool, error) {
	now := time.Now()
	job := &models.ReconcileJob{
		IntentID:  intentID,
		RunAt:     runAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	query := s.DB.NewInsert().Model(job)
	if once {
		query = query.On("CONFLICT (intent_id) DO NOTHING")
	} else {
		query = query.On("CONFLICT (intent_id) DO UPDATE").
			Set("run_at = EXCLUDED.run_at").
			Set("locked_until = NULL").
			Set("updated_at = EXCLUDED.updated_at")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func (s *BunIntentStore) ClaimDueReconcileJobs(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.ReconcileJob, error) {
	jobs := []models.ReconcileJob{}
	err := s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&jobs).
			Where("run_at <= ?", now).
			Where("(locked_until IS NULL OR locked_until < ?)", now).
			Order("run_at ASC").
			Limit(limit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(jobs))
		for i := range jobs {
			jobs[i].LockedUntil = bun.NullTime{Time: now.Add(lease)}
			ids = append(ids, jobs[i].ID)
		}
		_, err = tx.NewUpdate().Model((*models.ReconcileJob)(nil)).
			Set("locked_until = ?", now.Add(lease)).
			Set("updated_at = ?", now).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// CompleteReconcileJob deletes a claimed job. A job re-armed during the run
// has lost its lease and survives.
func (s *BunIntentStore) CompleteReconcileJob(ctx context.Context, job models.ReconcileJob) error {
	_, err := s.DB.NewDelete().Model((*models.ReconcileJob)(nil)).
		Where("id = ?", job.ID).
		Where("locked_until IS NOT NULL").
		Exec(ctx)
	return err
}

func (s *BunIntentStore) GetReconcileJob(ctx context.Context, intentID int64) (*models.ReconcileJob, error) {
	job := &models.ReconcileJob{}
	err := s.DB.NewSelect().Model(job).Where("intent_id = ?", intentID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *BunIntentStore) GetPortalUser(ctx context.Context, id int64) (*models.PortalUser, error) {
	user := &models.PortalUser{}
	err := s.DB.NewSelect().Model(user).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *BunIntentStore) UpsertPortalUser(ctx context.Context, user *models.PortalUser) error {
	_, err := s.DB.NewInsert().Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("giav_customer_id = EXCLUDED.giav_customer_id").
		Set("updated_at = current_timestamp").
		Returning("*").
		Exec(ctx)
	return err
}

func isUniqueViolation(err error, column string) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Field('C') == "23505" && strings.Contains(pgErr.Field('n'), column)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var _ IntentStore = (*BunIntentStore)(nil)
