package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- amounts are cents and a payment is never zero
				ALTER TABLE payment_intents
				ADD CONSTRAINT check_positive_amount
				CHECK (amount > 0);

			-- the status column only holds known states
				ALTER TABLE payment_intents
				ADD CONSTRAINT check_known_status
				CHECK (status IN ('created', 'redirecting', 'returned_ok', 'returned_ko',
					'notified_ok', 'notified_ko', 'notified_bad_sig', 'reconciled', 'failed'));

			-- terminal intents never leave their state
				CREATE OR REPLACE FUNCTION check_terminal_status()
					RETURNS TRIGGER AS $$
				BEGIN
					IF OLD.status IN ('reconciled', 'failed') AND NEW.status != OLD.status
					THEN
						RAISE EXCEPTION 'invalid status transition [intent_id:%] % -> %',
						OLD.id,
						OLD.status,
						NEW.status;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER check_terminal_status
				BEFORE UPDATE ON payment_intents
				FOR EACH ROW EXECUTE PROCEDURE check_terminal_status();
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
