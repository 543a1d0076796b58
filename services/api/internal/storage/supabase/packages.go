package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func (s *Store) GetPackage(ctx context.Context, id string) (domain.Package, error) {
	var rows []packageRow
	_, err := s.db.From(tablePackages).Select("*", "", false).Eq("id", id).ExecuteTo(&rows)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Package{}, domain.ErrInvalidID
		}
		return domain.Package{}, fmt.Errorf("get package: %w", err)
	}
	if len(rows) == 0 {
		return domain.Package{}, domain.ErrPackageNotFound
	}
	return rows[0].toDomain(), nil
}

func (s *Store) ListPackages(ctx context.Context, includeInactive bool) ([]domain.Package, error) {
	q := s.db.From(tablePackages).Select("*", "", false)
	if !includeInactive {
		q = q.Eq("active", "true")
	}
	var rows []packageRow
	_, err := q.Order("order_index", &postgrest.OrderOpts{Ascending: true}).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	pkgs := make([]domain.Package, 0, len(rows))
	for _, r := range rows {
		pkgs = append(pkgs, r.toDomain())
	}
	return pkgs, nil
}

func (s *Store) UpsertPackage(ctx context.Context, pkg domain.Package) error {
	_, _, err := s.db.From(tablePackages).Upsert(newPackageRow(pkg), "id", "minimal", "").Execute()
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("upsert package: %w", err)
	}
	return nil
}
