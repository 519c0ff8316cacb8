package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/margingate/internal/quote"
)

const quoteColumns = `
	id, public_id, vendor_id, client_name, title, notes,
	discount_kind, discount_value, shipping_cost,
	lifecycle_status, authorization_status, revision, version, rejection_reason,
	created_at, updated_at`

// QuoteFilter narrows ListQuotes. Zero fields do not filter.
type QuoteFilter struct {
	Query         string
	VendorID      string
	Lifecycle     quote.Lifecycle
	Authorization quote.Authorization
	Limit         int
}

// CreateQuote inserts q with its lines and returns it with ids and version set.
func (s *Store) CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	q = q.Clone()
	q.Version = 1
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (
				public_id, vendor_id, client_name, title, notes,
				discount_kind, discount_value, shipping_cost,
				lifecycle_status, authorization_status, revision, version, rejection_reason,
				created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			q.PublicID, q.VendorID, q.ClientName, q.Title, q.Notes,
			string(q.DiscountKind), q.DiscountValue, q.ShippingCost,
			string(q.Lifecycle), string(q.Authorization), q.Revision, q.Version, q.RejectionReason,
			formatTime(q.CreatedAt), formatTime(q.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		if q.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read quote id: %w", err)
		}
		return syncLines(ctx, tx, &q)
	})
	if err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

// GetQuote loads a quote and its lines by id.
func (s *Store) GetQuote(ctx context.Context, id int64) (quote.Quote, error) {
	return s.getQuote(ctx, `id = ?`, id)
}

// GetQuoteByPublicID loads a quote by the identifier handed to clients.
func (s *Store) GetQuoteByPublicID(ctx context.Context, publicID string) (quote.Quote, error) {
	return s.getQuote(ctx, `public_id = ?`, publicID)
}

func (s *Store) getQuote(ctx context.Context, where string, arg any) (quote.Quote, error) {
	q, err := scanQuote(s.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return quote.Quote{}, fmt.Errorf("quote: %w", ErrNotFound)
	}
	if err != nil {
		return quote.Quote{}, err
	}
	if q.Lines, err = loadLines(ctx, s.db, q.ID); err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

// ListQuotes returns quotes newest first, with their lines.
func (s *Store) ListQuotes(ctx context.Context, f QuoteFilter) ([]quote.Quote, error) {
	var (
		conds []string
		args  []any
	)
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + term + "%"
		conds = append(conds, `(title LIKE ? OR notes LIKE ? OR client_name LIKE ?)`)
		args = append(args, like, like, like)
	}
	if f.VendorID != "" {
		conds = append(conds, `vendor_id = ?`)
		args = append(args, f.VendorID)
	}
	if f.Lifecycle != "" {
		conds = append(conds, `lifecycle_status = ?`)
		args = append(args, string(f.Lifecycle))
	}
	if f.Authorization != "" {
		conds = append(conds, `authorization_status = ?`)
		args = append(args, string(f.Authorization))
	}

	query := `SELECT ` + quoteColumns + ` FROM quotes`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	quotes := []quote.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	rows.Close()

	for i := range quotes {
		if quotes[i].Lines, err = loadLines(ctx, s.db, quotes[i].ID); err != nil {
			return nil, err
		}
	}
	return quotes, nil
}

// SaveQuote writes q if the stored row still has the given version and
// state, bumps the version, syncs the line set and appends events, all in one
// transaction. A lost race returns ErrVersionConflict and writes nothing.
func (s *Store) SaveQuote(ctx context.Context, q quote.Quote, expected quote.State, expectedVersion int64, events ...quote.AuthorizationEvent) (quote.Quote, error) {
	q = q.Clone()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE quotes
			SET client_name = ?, title = ?, notes = ?,
				discount_kind = ?, discount_value = ?, shipping_cost = ?,
				lifecycle_status = ?, authorization_status = ?,
				revision = ?, rejection_reason = ?, updated_at = ?,
				version = version + 1
			WHERE id = ? AND version = ? AND lifecycle_status = ? AND authorization_status = ?
		`,
			q.ClientName, q.Title, q.Notes,
			string(q.DiscountKind), q.DiscountValue, q.ShippingCost,
			string(q.Lifecycle), string(q.Authorization),
			q.Revision, q.RejectionReason, formatTime(q.UpdatedAt),
			q.ID, expectedVersion, string(expected.Lifecycle), string(expected.Authorization),
		)
		if err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read affected rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("quote %d: %w", q.ID, ErrVersionConflict)
		}
		q.Version = expectedVersion + 1

		if err := syncLines(ctx, tx, &q); err != nil {
			return err
		}
		for _, ev := range events {
			if err := insertEvent(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

// ListAuthorizationEvents returns the authorization history of a quote, oldest first.
func (s *Store) ListAuthorizationEvents(ctx context.Context, quoteID int64) ([]quote.AuthorizationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quote_id, action, decision, actor, reason,
			lifecycle_before, authorization_before, lifecycle_after, authorization_after,
			revision, created_at
		FROM quote_authorizations
		WHERE quote_id = ?
		ORDER BY created_at, rowid
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query authorization events: %w", err)
	}
	defer rows.Close()

	events := []quote.AuthorizationEvent{}
	for rows.Next() {
		var (
			ev                                       quote.AuthorizationEvent
			action, decision                         string
			lcBefore, authBefore, lcAfter, authAfter string
			createdAt                                string
		)
		if err := rows.Scan(&ev.ID, &ev.QuoteID, &action, &decision, &ev.Actor, &ev.Reason,
			&lcBefore, &authBefore, &lcAfter, &authAfter, &ev.Revision, &createdAt); err != nil {
			return nil, fmt.Errorf("scan authorization event: %w", err)
		}
		ev.Action = quote.Event(action)
		ev.Decision = quote.Authorization(decision)
		ev.Before = quote.State{Lifecycle: quote.Lifecycle(lcBefore), Authorization: quote.Authorization(authBefore)}
		ev.After = quote.State{Lifecycle: quote.Lifecycle(lcAfter), Authorization: quote.Authorization(authAfter)}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authorization events: %w", err)
	}
	return events, nil
}

func scanQuote(row rowScanner) (quote.Quote, error) {
	var (
		q                      quote.Quote
		kind, lifecycle, authz string
		createdAt, updatedAt   string
	)
	err := row.Scan(
		&q.ID, &q.PublicID, &q.VendorID, &q.ClientName, &q.Title, &q.Notes,
		&kind, &q.DiscountValue, &q.ShippingCost,
		&lifecycle, &authz, &q.Revision, &q.Version, &q.RejectionReason,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return quote.Quote{}, err
	}
	if err != nil {
		return quote.Quote{}, fmt.Errorf("scan quote: %w", err)
	}

	if q.DiscountKind, err = quote.ParseDiscountKind(kind); err != nil {
		return quote.Quote{}, err
	}
	if q.Lifecycle, err = quote.ParseLifecycle(lifecycle); err != nil {
		return quote.Quote{}, err
	}
	if q.Authorization, err = quote.ParseAuthorization(authz); err != nil {
		return quote.Quote{}, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return quote.Quote{}, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

func loadLines(ctx context.Context, q queryer, quoteID int64) ([]quote.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_ref, description, cost_price, quantity, tier_id,
			ideal_unit_price, minimum_unit_price, unit_price, customizations_json, created_at
		FROM quote_line_items
		WHERE quote_id = ?
		ORDER BY position, id
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote lines: %w", err)
	}
	defer rows.Close()

	lines := []quote.LineItem{}
	for rows.Next() {
		var (
			l                  quote.LineItem
			customs, createdAt string
		)
		if err := rows.Scan(&l.ID, &l.ProductRef, &l.Description, &l.CostPrice, &l.Quantity, &l.TierID,
			&l.IdealUnitPrice, &l.MinimumUnitPrice, &l.UnitPrice, &customs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		if err := json.Unmarshal([]byte(customs), &l.Customizations); err != nil {
			return nil, fmt.Errorf("decode customizations of line %d: %w", l.ID, err)
		}
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote lines: %w", err)
	}
	return lines, nil
}

// syncLines makes the stored line set match q.Lines. New lines (ID 0) are
// inserted and get their id assigned on q. Frozen prices of existing lines
// are never rewritten.
func syncLines(ctx context.Context, tx *sql.Tx, q *quote.Quote) error {
	keep := make([]any, 0, len(q.Lines)+1)
	keep = append(keep, q.ID)

	for i := range q.Lines {
		l := &q.Lines[i]
		customs, err := json.Marshal(customizationsOrEmpty(l.Customizations))
		if err != nil {
			return fmt.Errorf("encode customizations: %w", err)
		}

		if l.ID == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO quote_line_items (
					quote_id, position, product_ref, description, cost_price, quantity, tier_id,
					ideal_unit_price, minimum_unit_price, unit_price, customizations_json, created_at
				)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, q.ID, i, l.ProductRef, l.Description, l.CostPrice, l.Quantity, l.TierID,
				l.IdealUnitPrice, l.MinimumUnitPrice, l.UnitPrice, string(customs), formatTime(l.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert quote line: %w", err)
			}
			if l.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("read quote line id: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx, `
				UPDATE quote_line_items
				SET position = ?, quantity = ?, unit_price = ?, customizations_json = ?
				WHERE id = ? AND quote_id = ?
			`, i, l.Quantity, l.UnitPrice, string(customs), l.ID, q.ID); err != nil {
				return fmt.Errorf("update quote line %d: %w", l.ID, err)
			}
		}
		keep = append(keep, l.ID)
	}

	query := `DELETE FROM quote_line_items WHERE quote_id = ?`
	if len(keep) > 1 {
		query += ` AND id NOT IN (?` + strings.Repeat(`, ?`, len(keep)-2) + `)`
	}
	if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
		return fmt.Errorf("delete removed quote lines: %w", err)
	}
	return nil
}

func customizationsOrEmpty(cs []quote.Customization) []quote.Customization {
	if cs == nil {
		return []quote.Customization{}
	}
	return cs
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev quote.AuthorizationEvent) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quote_authorizations (
			id, quote_id, action, decision, actor, reason,
			lifecycle_before, authorization_before, lifecycle_after, authorization_after,
			revision, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID.String(), ev.QuoteID, string(ev.Action), string(ev.Decision), ev.Actor, ev.Reason,
		string(ev.Before.Lifecycle), string(ev.Before.Authorization),
		string(ev.After.Lifecycle), string(ev.After.Authorization),
		ev.Revision, formatTime(ev.CreatedAt)); err != nil {
		return fmt.Errorf("insert authorization event: %w", err)
	}
	return nil
}
