package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// PortalUser links a portal account to its GIAV customer.
type PortalUser struct {
	ID             int64        `json:"id" bun:",pk"`
	Email          string       `json:"email" bun:",nullzero"`
	GiavCustomerID int64        `json:"giav_customer_id" bun:",notnull"`
	CreatedAt      time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt      bun.NullTime `json:"updated_at"`
}

func (u *PortalUser) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		u.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*PortalUser)(nil)
