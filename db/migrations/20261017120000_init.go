package migrations

import (
	"context"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on fresh db
make sure that when you add/remove columns in subsequent migrations IfNotExists/IfExists is used
otherwise it's going to result in errors.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if _, err := db.NewCreateTable().Model((*models.PortalUser)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.PaymentIntent)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.IntentEvent)(nil)).IfNotExists().
			ForeignKey(`("intent_id") REFERENCES "payment_intents" ("id") ON DELETE RESTRICT`).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.IdempotencyKey)(nil)).IfNotExists().
			ForeignKey(`("intent_id") REFERENCES "payment_intents" ("id") ON DELETE RESTRICT`).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.ReconcileJob)(nil)).IfNotExists().
			ForeignKey(`("intent_id") REFERENCES "payment_intents" ("id") ON DELETE CASCADE`).Exec(ctx); err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{
			(*models.ReconcileJob)(nil),
			(*models.IdempotencyKey)(nil),
			(*models.IntentEvent)(nil),
			(*models.PaymentIntent)(nil),
			(*models.PortalUser)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
