package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/policies"
	"voyago/internal/shared/config"
	"voyago/internal/shared/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Voyago Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"refund_transactions",
		"cancellation_evidence_documents",
		"cancellation_requests",
		"cancellation_policy_tiers",
		"cancellation_policies",
		"bookings",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if err := s.SeedPolicies(); err != nil {
		return fmt.Errorf("failed to seed cancellation policies: %w", err)
	}

	if err := s.SeedBookings(); err != nil {
		return fmt.Errorf("failed to seed bookings: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedPolicies creates a tiered cancellation policy per tour category
func (s *Seeder) SeedPolicies() error {
	fmt.Println("  📋 Seeding cancellation policies...")

	type tierData struct {
		minHours          int
		refundPercent     int64
		cancellationType  policies.FeeType
		cancellationValue int64
		processingType    policies.FeeType
		processingValue   int64
		emergency         bool
	}

	policiesData := []struct {
		name     string
		category string
		tiers    []tierData
	}{
		{
			name:     "Adventure Standard",
			category: "ADVENTURE",
			tiers: []tierData{
				{168, 100, policies.FeeTypeNone, 0, policies.FeeTypeNone, 0, false},
				{72, 75, policies.FeeTypeFixed, 50, policies.FeeTypePercentage, 2, false},
				{24, 25, policies.FeeTypeFixed, 100, policies.FeeTypePercentage, 2, false},
				{0, 90, policies.FeeTypeNone, 0, policies.FeeTypeNone, 0, true},
			},
		},
		{
			name:     "Safari Flexible",
			category: "SAFARI",
			tiers: []tierData{
				{336, 100, policies.FeeTypeNone, 0, policies.FeeTypeNone, 0, false},
				{120, 80, policies.FeeTypePercentage, 5, policies.FeeTypeFixed, 25, false},
				{48, 40, policies.FeeTypePercentage, 10, policies.FeeTypeFixed, 25, false},
				{0, 85, policies.FeeTypeNone, 0, policies.FeeTypeFixed, 25, true},
			},
		},
		{
			name:     "Cultural Basic",
			category: "CULTURAL",
			tiers: []tierData{
				{72, 100, policies.FeeTypeNone, 0, policies.FeeTypeNone, 0, false},
				{24, 50, policies.FeeTypeFixed, 30, policies.FeeTypeNone, 0, false},
			},
		},
		{
			name:     "Cruise Strict",
			category: "CRUISE",
			tiers: []tierData{
				{720, 100, policies.FeeTypeFixed, 200, policies.FeeTypeFixed, 50, false},
				{336, 50, policies.FeeTypePercentage, 10, policies.FeeTypeFixed, 50, false},
				{168, 25, policies.FeeTypePercentage, 15, policies.FeeTypeFixed, 50, false},
				{0, 75, policies.FeeTypePercentage, 5, policies.FeeTypeFixed, 50, true},
			},
		},
	}

	for _, policyData := range policiesData {
		policy := policies.Policy{
			ID:        uuid.New(),
			Name:      policyData.name,
			Category:  policyData.category,
			Active:    true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		for _, t := range policyData.tiers {
			policy.Tiers = append(policy.Tiers, policies.Tier{
				ID:                      uuid.New(),
				PolicyID:                policy.ID,
				MinHoursBeforeDeparture: t.minHours,
				RefundPercent:           decimal.NewFromInt(t.refundPercent),
				CancellationFeeType:     t.cancellationType,
				CancellationFeeAmount:   decimal.NewFromInt(t.cancellationValue),
				ProcessingFeeType:       t.processingType,
				ProcessingFeeAmount:     decimal.NewFromInt(t.processingValue),
				IsEmergencyOverride:     t.emergency,
			})
		}

		if err := s.db.PostgreSQL.Create(&policy).Error; err != nil {
			return fmt.Errorf("failed to create policy %s: %w", policy.Name, err)
		}
		fmt.Printf("    ✅ Created policy: %s (%s, %d tiers)\n", policy.Name, policy.Category, len(policy.Tiers))
	}

	return nil
}

// SeedBookings creates confirmed bookings at different distances from departure
func (s *Seeder) SeedBookings() error {
	fmt.Println("  🧳 Seeding bookings...")

	// Two customers; their IDs are printed so tokens can be minted for testing
	customerA := uuid.New()
	customerB := uuid.New()
	fmt.Printf("    👤 Customer A: %s\n", customerA)
	fmt.Printf("    👤 Customer B: %s\n", customerB)

	bookingsData := []struct {
		ref         string
		userID      uuid.UUID
		category    string
		amount      int64
		daysFromNow int
	}{
		{"VYG-2026-0001", customerA, "ADVENTURE", 1200, 30},
		{"VYG-2026-0002", customerA, "SAFARI", 3500, 10},
		{"VYG-2026-0003", customerA, "CULTURAL", 450, 2},
		{"VYG-2026-0004", customerB, "CRUISE", 5200, 45},
		{"VYG-2026-0005", customerB, "ADVENTURE", 900, 1},
		{"VYG-2026-0006", customerB, "CULTURAL", 600, 90},
	}

	for _, bookingData := range bookingsData {
		booking := bookings.Booking{
			ID:             uuid.New(),
			UserID:         bookingData.userID,
			BookingRef:     bookingData.ref,
			TourCategory:   bookingData.category,
			StartDate:      time.Now().AddDate(0, 0, bookingData.daysFromNow),
			OriginalAmount: decimal.NewFromInt(bookingData.amount),
			Status:         bookings.StatusConfirmed,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&booking).Error; err != nil {
			return fmt.Errorf("failed to create booking %s: %w", booking.BookingRef, err)
		}
		fmt.Printf("    ✅ Created booking: %s (%s, departs in %d days)\n",
			booking.BookingRef, booking.TourCategory, bookingData.daysFromNow)
	}

	return nil
}
