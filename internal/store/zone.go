// LOCATION: internal/store/zone.go
//
// Zone CRUD.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// CreateZone inserts a zone and fills in its assigned ID.
func (s *Store) CreateZone(ctx context.Context, zone *model.Zone) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO zones (name, color, sort_order)
		VALUES (?, ?, ?)
		RETURNING id
	`, zone.Name, zone.Color, zone.SortOrder).Scan(&zone.ID)
	if err != nil {
		return fmt.Errorf("insert zone: %w", err)
	}
	return nil
}

// GetZone retrieves a zone by ID.
func (s *Store) GetZone(ctx context.Context, id int64) (*model.Zone, error) {
	var zone model.Zone
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, sort_order FROM zones WHERE id = ?`, id,
	).Scan(&zone.ID, &zone.Name, &zone.Color, &zone.SortOrder)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("zone", id)
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// ListZones returns all zones ordered for display.
func (s *Store) ListZones(ctx context.Context) ([]model.Zone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, sort_order FROM zones ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []model.Zone
	for rows.Next() {
		var zone model.Zone
		if err := rows.Scan(&zone.ID, &zone.Name, &zone.Color, &zone.SortOrder); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, zone)
	}
	return out, rows.Err()
}

// UpdateZone updates a zone's display fields.
func (s *Store) UpdateZone(ctx context.Context, zone *model.Zone) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE zones SET name = ?, color = ?, sort_order = ? WHERE id = ?
	`, zone.Name, zone.Color, zone.SortOrder, zone.ID)
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("zone", zone.ID)
	}
	return nil
}

// DeleteZone removes a zone, detaching its member sensors first so they
// remain tracked but unassigned.
func (s *Store) DeleteZone(ctx context.Context, id int64) error {
	return s.TransactionContext(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sensors SET zone_id = NULL WHERE zone_id = ?`, id); err != nil {
			return fmt.Errorf("detach sensors: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete zone: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NewNotFound("zone", id)
		}
		return nil
	})
}
