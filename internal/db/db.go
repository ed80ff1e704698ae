package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"service-booking-backend/config"
	"service-booking-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations", zap.String("driver", cfg.Driver))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnforceConstraints && cfg.Driver == "postgres" {
		log.Info("applying capacity check constraints")
		if err := applyCapacityConstraints(db); err != nil {
			log.Warn("failed to apply some check constraints, continuing without them", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// GormConfig is shared by Init and the tests so both see the same error
// translation and clock.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Migrate creates or updates the tables owned by the booking core.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.TimeSlot{},
		&model.Booking{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyCapacityConstraints backs the allocator's invariants with table-level
// checks. Postgres has no ADD CONSTRAINT IF NOT EXISTS, so existing
// constraints are dropped first.
func applyCapacityConstraints(db *gorm.DB) error {
	ddls := []string{
		"ALTER TABLE time_slots DROP CONSTRAINT IF EXISTS time_slots_capacity_positive;",
		"ALTER TABLE time_slots ADD CONSTRAINT time_slots_capacity_positive CHECK (max_capacity >= 1);",

		"ALTER TABLE time_slots DROP CONSTRAINT IF EXISTS time_slots_bookings_in_range;",
		"ALTER TABLE time_slots ADD CONSTRAINT time_slots_bookings_in_range " +
			"CHECK (current_bookings >= 0 AND current_bookings <= max_capacity);",

		"ALTER TABLE time_slots DROP CONSTRAINT IF EXISTS time_slots_availability_derived;",
		"ALTER TABLE time_slots ADD CONSTRAINT time_slots_availability_derived " +
			"CHECK (is_available = (current_bookings < max_capacity));",

		"ALTER TABLE time_slots DROP CONSTRAINT IF EXISTS time_slots_window_valid;",
		"ALTER TABLE time_slots ADD CONSTRAINT time_slots_window_valid CHECK (start_time < end_time);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
