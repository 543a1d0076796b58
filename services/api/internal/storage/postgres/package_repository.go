package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const packageColumns = `id, translations, price_minor, currency, duration_minutes, is_popular, order_index, active`

func scanPackage(row pgx.Row) (domain.Package, error) {
	var p domain.Package
	err := row.Scan(&p.ID, &p.Translations, &p.PriceMinor, &p.Currency, &p.DurationMinutes, &p.IsPopular, &p.OrderIndex, &p.Active)
	return p, err
}

func (s *Store) GetPackage(ctx context.Context, id string) (domain.Package, error) {
	p, err := scanPackage(s.queryRow(ctx, `SELECT `+packageColumns+` FROM consultation_packages WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Package{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Package{}, domain.ErrPackageNotFound
		}
		return domain.Package{}, fmt.Errorf("get package: %w", err)
	}
	return p, nil
}

func (s *Store) ListPackages(ctx context.Context, includeInactive bool) ([]domain.Package, error) {
	const query = `
SELECT ` + packageColumns + `
FROM consultation_packages
WHERE active OR $1::boolean
ORDER BY order_index ASC, created_at ASC`

	rows, err := s.query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	pkgs := []domain.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate packages: %w", rows.Err())
	}
	return pkgs, nil
}
