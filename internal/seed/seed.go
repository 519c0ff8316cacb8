package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/pricing"
)

// Config contains the values required by startup seed.
type Config struct {
	Rates pricing.RateConfiguration
	Tiers []pricing.MarginTier
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// DefaultConfig is the rate schedule a fresh database starts with.
func DefaultConfig() Config {
	d := decimal.RequireFromString
	return Config{
		Rates: pricing.RateConfiguration{
			ID:                        pricing.DefaultConfigID,
			TaxRate:                   d("0.11"),
			CommissionRate:            d("0.04"),
			CashDiscountRate:          d("0.03"),
			FallbackMinimumMarginRate: d("0.15"),
		},
		Tiers: []pricing.MarginTier{
			{MinRevenue: d("0"), MaxRevenue: decimal.NewNullDecimal(d("10000")), MarginRate: d("0.28"), MinimumMarginRate: d("0.18"), DisplayOrder: 1},
			{MinRevenue: d("10000"), MaxRevenue: decimal.NewNullDecimal(d("50000")), MarginRate: d("0.24"), MinimumMarginRate: d("0.15"), DisplayOrder: 2},
			{MinRevenue: d("50000"), MarginRate: d("0.20"), MinimumMarginRate: d("0.12"), DisplayOrder: 3},
		},
	}
}

// Run executes the startup seed in an idempotent way. Existing rates and
// tiers are never overwritten.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	if err := pricing.ValidateSchedule(cfg.Rates, cfg.Tiers); err != nil {
		return Stats{}, fmt.Errorf("validate seed schedule: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureRateConfig(ctx, tx, cfg.Rates, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureTiers(ctx, tx, cfg.Rates.ID, cfg.Tiers, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureRateConfig(ctx context.Context, tx *sql.Tx, rc pricing.RateConfiguration, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rate_config WHERE id = ?)`, rc.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check rate config existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rate_config (
			id,
			tax_rate,
			commission_rate,
			cash_discount_rate,
			fallback_minimum_margin_rate,
			updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rc.ID, rc.TaxRate, rc.CommissionRate, rc.CashDiscountRate, rc.FallbackMinimumMarginRate,
		time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")); err != nil {
		return fmt.Errorf("insert rate config singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

// ensureTiers only seeds an empty tier table; an admin who deleted or edited
// the defaults keeps their schedule.
func ensureTiers(ctx context.Context, tx *sql.Tx, configID int64, tiers []pricing.MarginTier, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM margin_tiers WHERE config_id = ? LIMIT 1)`, configID).Scan(&exists); err != nil {
		return fmt.Errorf("check margin tier existence: %w", err)
	}
	if exists {
		return nil
	}

	for _, t := range tiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO margin_tiers (config_id, min_revenue, max_revenue, margin_rate, minimum_margin_rate, display_order)
			VALUES (?, ?, ?, ?, ?, ?)
		`, configID, t.MinRevenue, t.MaxRevenue, t.MarginRate, t.MinimumMarginRate, t.DisplayOrder); err != nil {
			return fmt.Errorf("insert margin tier %s: %w", t.MinRevenue, err)
		}
		stats.Inserts++
	}
	return nil
}
