package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReconcileJob : the single pending reconciliation run of an intent.
type ReconcileJob struct {
	ID          int64        `bun:",pk,autoincrement"`
	IntentID    int64        `bun:",unique,notnull"`
	RunAt       time.Time    `bun:",notnull"`
	LockedUntil bun.NullTime `bun:",nullzero"`
	CreatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
}
