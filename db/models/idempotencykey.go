package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	IdempotencyStatusInProgress = "in_progress"
	IdempotencyStatusCompleted  = "completed"
	IdempotencyStatusFailed     = "failed"

	OperationErpBridge = "erp_bridge"
)

// IdempotencyKey : one row per (intent, operation). A completed row means the
// side effect happened and must not be repeated.
type IdempotencyKey struct {
	IntentID    int64        `bun:",pk"`
	Operation   string       `bun:",pk"`
	Status      string       `bun:",notnull"`
	Owner       uuid.UUID    `bun:"type:uuid,notnull"`
	Result      string       `bun:",nullzero"`
	Error       string       `bun:",nullzero"`
	LockedUntil bun.NullTime `bun:",nullzero"`
	CreatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
}
