package database

import (
	"voyago/internal/bookings"
	"voyago/internal/policies"
	"voyago/internal/refunds"
	"voyago/internal/requests"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&bookings.Booking{},
		&policies.Policy{},
		&policies.Tier{},
		&requests.CancellationRequest{},
		&requests.EvidenceDocument{},
		&refunds.RefundTransaction{},
	)
}
