package policies

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType determines how a tier's fee component is computed
type FeeType string

const (
	FeeTypeNone       FeeType = "NONE"
	FeeTypeFixed      FeeType = "FIXED"
	FeeTypePercentage FeeType = "PERCENTAGE"
)

// IsValid checks if the fee type is a known value
func (f FeeType) IsValid() bool {
	switch f {
	case FeeTypeNone, FeeTypeFixed, FeeTypePercentage:
		return true
	}
	return false
}

// Policy defines the cancellation policy for a tour category
type Policy struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Category  string    `gorm:"type:varchar(50);unique;not null" json:"category"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Tiers []Tier `json:"tiers" gorm:"foreignKey:PolicyID;constraint:OnDelete:CASCADE;"`
}

// Tier maps an hours-before-departure threshold to a refund percentage and
// fee rules. The emergency tier is selectable only with reviewed evidence.
type Tier struct {
	ID                      uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID                uuid.UUID       `gorm:"type:uuid;index;not null" json:"policy_id"`
	MinHoursBeforeDeparture int             `gorm:"not null" json:"min_hours_before_departure"`
	RefundPercent           decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"refund_percent"`
	CancellationFeeType     FeeType         `gorm:"type:varchar(20);check:cancellation_fee_type IN ('NONE', 'FIXED', 'PERCENTAGE');default:'NONE'" json:"cancellation_fee_type"`
	CancellationFeeAmount   decimal.Decimal `gorm:"type:numeric(16,2);default:0" json:"cancellation_fee_amount"`
	ProcessingFeeType       FeeType         `gorm:"type:varchar(20);check:processing_fee_type IN ('NONE', 'FIXED', 'PERCENTAGE');default:'NONE'" json:"processing_fee_type"`
	ProcessingFeeAmount     decimal.Decimal `gorm:"type:numeric(16,2);default:0" json:"processing_fee_amount"`
	IsEmergencyOverride     bool            `gorm:"default:false" json:"is_emergency_override"`
	CreatedAt               time.Time       `json:"created_at"`
}

// TableName sets the table name for Policy
func (Policy) TableName() string {
	return "cancellation_policies"
}

// TableName sets the table name for Tier
func (Tier) TableName() string {
	return "cancellation_policy_tiers"
}

// StandardTiers returns the regular tiers sorted by threshold descending
func (p *Policy) StandardTiers() []Tier {
	tiers := make([]Tier, 0, len(p.Tiers))
	for _, t := range p.Tiers {
		if !t.IsEmergencyOverride {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// EmergencyTier returns the emergency-override tier if the policy defines one
func (p *Policy) EmergencyTier() *Tier {
	for i := range p.Tiers {
		if p.Tiers[i].IsEmergencyOverride {
			return &p.Tiers[i]
		}
	}
	return nil
}

// ComputeFee applies a tier fee rule to the booking's original amount
func ComputeFee(feeType FeeType, amount, originalAmount decimal.Decimal) decimal.Decimal {
	switch feeType {
	case FeeTypeFixed:
		return amount
	case FeeTypePercentage:
		return originalAmount.Mul(amount).Div(decimal.NewFromInt(100))
	default:
		return decimal.Zero
	}
}
