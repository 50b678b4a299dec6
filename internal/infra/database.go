package infra

import (
	"fmt"

	"warehouse/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date.
func NewDatabase(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates all tables, then applies the constraints
// AutoMigrate cannot express. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Movement{},
		&model.Restock{},
		&model.User{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches adds CHECK constraints on quantities. Each block is
// guarded by an existence check so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"gen_random_uuid", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		{"movement quantities are non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movement_qty_non_negative') THEN
    ALTER TABLE daily_stock_movement
      ADD CONSTRAINT chk_movement_qty_non_negative CHECK (issued_qty >= 0 AND returned_qty >= 0);
  END IF;
END $$`},
		{"restock quantity is positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_restock_qty_positive') THEN
    ALTER TABLE restock ADD CONSTRAINT chk_restock_qty_positive CHECK (restock_qty > 0);
  END IF;
END $$`},
		{"product rate and bundle are non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_product_rate_bundle') THEN
    ALTER TABLE products ADD CONSTRAINT chk_product_rate_bundle CHECK (product_rate >= 0 AND item_bundle >= 0);
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
