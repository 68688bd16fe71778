package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pantrylens/backend/internal/domain"
)

const observationColumns = `id, item_name, item_key, category, store, price, unit,
	observed_at, last_reported_at, verified, report_count, reporter_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*domain.PriceObservation, error) {
	var obs domain.PriceObservation
	err := row.Scan(
		&obs.ID, &obs.ItemName, &obs.ItemKey, &obs.Category, &obs.Store, &obs.Price, &obs.Unit,
		&obs.ObservedAt, &obs.LastReportedAt, &obs.Verified, &obs.ReportCount, &obs.ReporterID,
	)
	if err != nil {
		return nil, err
	}
	obs.ObservedAt = obs.ObservedAt.UTC()
	obs.LastReportedAt = obs.LastReportedAt.UTC()
	return &obs, nil
}

// UpsertObservation implements domain.PriceRepository. The lookup and the write
// share one transaction; on Postgres a transaction-scoped advisory lock on the
// ledger key serializes concurrent reports, including first reports.
func (s *Store) UpsertObservation(ctx context.Context, key domain.LedgerKey, since time.Time, apply domain.ObservationUpdate) (*domain.PriceObservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if s.dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
			return nil, fmt.Errorf("failed to lock ledger key: %w", err)
		}
	}

	row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+observationColumns+`
		FROM price_observations
		WHERE item_key = ? AND store = ? AND observed_at >= ?
		ORDER BY observed_at DESC
		LIMIT 1`), key.ItemKey, key.Store, since.UTC())

	existing, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load observation: %w", err)
	}

	next, err := apply(existing)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errors.New("observation update returned nil")
	}

	if existing == nil || existing.ID != next.ID {
		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO price_observations (`+observationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			next.ID, next.ItemName, next.ItemKey, next.Category, next.Store, next.Price, next.Unit,
			next.ObservedAt.UTC(), next.LastReportedAt.UTC(), next.Verified, next.ReportCount, next.ReporterID,
		)
	} else {
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE price_observations
			SET price = ?, unit = ?, category = ?, last_reported_at = ?, verified = ?, report_count = ?, reporter_id = ?
			WHERE id = ?`),
			next.Price, next.Unit, next.Category, next.LastReportedAt.UTC(), next.Verified, next.ReportCount, next.ReporterID,
			next.ID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save observation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit observation: %w", err)
	}

	saved := *next
	return &saved, nil
}

// FindByItemName implements domain.PriceRepository
func (s *Store) FindByItemName(ctx context.Context, query string, since time.Time) ([]domain.PriceObservation, error) {
	pattern := "%" + likeEscaper.Replace(domain.NormalizeItemName(query)) + "%"

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+observationColumns+`
		FROM price_observations
		WHERE item_key LIKE ? ESCAPE '\' AND observed_at >= ?
		ORDER BY observed_at, id`), pattern, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []domain.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, *obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}

	return observations, nil
}
