package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// At most one non-terminal cancellation request per booking. This is the
	// single-writer guard for submissions across instances: a second insert
	// while one request is active violates the partial unique index.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_active_request_per_booking
		ON cancellation_requests (booking_id)
		WHERE status NOT IN ('REJECTED', 'COMPLETED', 'CANCELLED');
	`).Error
	if err != nil {
		return err
	}

	// One refund transaction per request
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_refund_per_request
		ON refund_transactions (request_id);
	`).Error
	if err != nil {
		return err
	}

	// Index for the settlement worker scanning dispatchable refunds
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_refund_transactions_status_next_attempt
		ON refund_transactions (status, next_attempt_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
