package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/margingate/internal/pricing"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetRateConfiguration loads the active rate configuration.
func (s *Store) GetRateConfiguration(ctx context.Context) (pricing.RateConfiguration, error) {
	return getRateConfiguration(ctx, s.db)
}

func getRateConfiguration(ctx context.Context, q queryer) (pricing.RateConfiguration, error) {
	var (
		rc        pricing.RateConfiguration
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, tax_rate, commission_rate, cash_discount_rate, fallback_minimum_margin_rate, updated_at
		FROM rate_config
		WHERE id = ?
	`, pricing.DefaultConfigID).Scan(
		&rc.ID,
		&rc.TaxRate,
		&rc.CommissionRate,
		&rc.CashDiscountRate,
		&rc.FallbackMinimumMarginRate,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.RateConfiguration{}, fmt.Errorf("rate configuration: %w", ErrNotFound)
	}
	if err != nil {
		return pricing.RateConfiguration{}, fmt.Errorf("query rate configuration: %w", err)
	}
	if rc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return pricing.RateConfiguration{}, err
	}
	return rc, nil
}

// ListMarginTiers returns the tiers of configID ordered by revenue bracket.
func (s *Store) ListMarginTiers(ctx context.Context, configID int64) ([]pricing.MarginTier, error) {
	return listMarginTiers(ctx, s.db, configID)
}

func listMarginTiers(ctx context.Context, q queryer, configID int64) ([]pricing.MarginTier, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, config_id, min_revenue, max_revenue, margin_rate, minimum_margin_rate, display_order
		FROM margin_tiers
		WHERE config_id = ?
		ORDER BY display_order, id
	`, configID)
	if err != nil {
		return nil, fmt.Errorf("query margin tiers: %w", err)
	}
	defer rows.Close()

	tiers := []pricing.MarginTier{}
	for rows.Next() {
		var t pricing.MarginTier
		if err := rows.Scan(&t.ID, &t.ConfigID, &t.MinRevenue, &t.MaxRevenue, &t.MarginRate, &t.MinimumMarginRate, &t.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan margin tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate margin tiers: %w", err)
	}
	// min_revenue is TEXT, so bracket order is decided on the decimals.
	pricing.SortTiers(tiers)
	return tiers, nil
}

// Snapshot reads the rate configuration and its tiers in one transaction.
func (s *Store) Snapshot(ctx context.Context) (pricing.Snapshot, error) {
	var snap pricing.Snapshot
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rc, err := getRateConfiguration(ctx, tx)
		if err != nil {
			return err
		}
		tiers, err := listMarginTiers(ctx, tx, rc.ID)
		if err != nil {
			return err
		}
		snap = pricing.NewSnapshot(rc, tiers)
		return nil
	})
	return snap, err
}

// UpdateRateConfiguration applies upd to the stored configuration. The result
// is validated against every existing tier inside the write transaction, so a
// rate change can never leave a tier with a non-positive price denominator.
// If no configuration exists yet, upd is applied to a zero configuration.
func (s *Store) UpdateRateConfiguration(ctx context.Context, upd pricing.RateUpdate) (pricing.RateConfiguration, error) {
	var next pricing.RateConfiguration
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := getRateConfiguration(ctx, tx)
		if errors.Is(err, ErrNotFound) {
			current = pricing.RateConfiguration{ID: pricing.DefaultConfigID}
		} else if err != nil {
			return err
		}

		tiers, err := listMarginTiers(ctx, tx, pricing.DefaultConfigID)
		if err != nil {
			return err
		}

		next = upd.Apply(current)
		next.UpdatedAt = s.now().UTC()
		if err := pricing.ValidateSchedule(next, tiers); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rate_config (id, tax_rate, commission_rate, cash_discount_rate, fallback_minimum_margin_rate, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				tax_rate = excluded.tax_rate,
				commission_rate = excluded.commission_rate,
				cash_discount_rate = excluded.cash_discount_rate,
				fallback_minimum_margin_rate = excluded.fallback_minimum_margin_rate,
				updated_at = excluded.updated_at
		`, next.ID, next.TaxRate, next.CommissionRate, next.CashDiscountRate, next.FallbackMinimumMarginRate, formatTime(next.UpdatedAt)); err != nil {
			return fmt.Errorf("upsert rate configuration: %w", err)
		}
		return nil
	})
	if err != nil {
		return pricing.RateConfiguration{}, err
	}
	return next, nil
}

// UpsertMarginTier inserts tier when its ID is zero and updates it otherwise.
// The tier set it produces is validated against the rates in the same
// transaction.
func (s *Store) UpsertMarginTier(ctx context.Context, tier pricing.MarginTier) (pricing.MarginTier, error) {
	if tier.ConfigID == 0 {
		tier.ConfigID = pricing.DefaultConfigID
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rc, err := getRateConfiguration(ctx, tx)
		if err != nil {
			return err
		}
		if tier.ConfigID != rc.ID {
			return &pricing.ValidationError{Field: "config_id", Message: fmt.Sprintf("must be %d", rc.ID)}
		}
		if err := pricing.ValidateTier(rc, tier); err != nil {
			return err
		}

		if tier.ID == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO margin_tiers (config_id, min_revenue, max_revenue, margin_rate, minimum_margin_rate, display_order)
				VALUES (?, ?, ?, ?, ?, ?)
			`, tier.ConfigID, tier.MinRevenue, tier.MaxRevenue, tier.MarginRate, tier.MinimumMarginRate, tier.DisplayOrder)
			if err != nil {
				return fmt.Errorf("insert margin tier: %w", err)
			}
			if tier.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("read margin tier id: %w", err)
			}
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE margin_tiers
			SET min_revenue = ?, max_revenue = ?, margin_rate = ?, minimum_margin_rate = ?, display_order = ?
			WHERE id = ? AND config_id = ?
		`, tier.MinRevenue, tier.MaxRevenue, tier.MarginRate, tier.MinimumMarginRate, tier.DisplayOrder, tier.ID, tier.ConfigID)
		if err != nil {
			return fmt.Errorf("update margin tier: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read affected rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("margin tier %d: %w", tier.ID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return pricing.MarginTier{}, err
	}
	return tier, nil
}

// DeleteMarginTier removes a tier. Lines that resolved to it keep their
// frozen prices and tier id.
func (s *Store) DeleteMarginTier(ctx context.Context, tierID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM margin_tiers WHERE id = ?`, tierID)
	if err != nil {
		return fmt.Errorf("delete margin tier: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("margin tier %d: %w", tierID, ErrNotFound)
	}
	return nil
}
