package app

import (
	"context"
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type CatalogRepository interface {
	ListPackages(ctx context.Context, includeInactive bool) ([]domain.Package, error)
	ListAvailableSlots(ctx context.Context, from, to time.Time) ([]domain.Slot, error)
}

// PackageView is a package with its text resolved for one language.
type PackageView struct {
	ID              string
	Name            string
	Description     string
	Features        []string
	PriceMinor      int64
	Currency        string
	DurationMinutes int
	IsPopular       bool
}

type CatalogService struct {
	repo            CatalogRepository
	clock           clock.Clock
	defaultLanguage string
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock, defaultLanguage string) *CatalogService {
	if defaultLanguage == "" {
		defaultLanguage = domain.DefaultLanguage
	}
	return &CatalogService{repo: repo, clock: clk, defaultLanguage: defaultLanguage}
}

func (s *CatalogService) ListPackages(ctx context.Context, lang string) ([]PackageView, error) {
	if lang == "" {
		lang = s.defaultLanguage
	}
	pkgs, err := s.repo.ListPackages(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]PackageView, 0, len(pkgs))
	for _, p := range pkgs {
		text := p.Text(lang)
		out = append(out, PackageView{
			ID:              p.ID,
			Name:            text.Name,
			Description:     text.Description,
			Features:        text.Features,
			PriceMinor:      p.PriceMinor,
			Currency:        p.Currency,
			DurationMinutes: p.DurationMinutes,
			IsPopular:       p.IsPopular,
		})
	}
	return out, nil
}

// ListAvailableSlots returns free slots starting no earlier than now. A zero
// to leaves the range open.
func (s *CatalogService) ListAvailableSlots(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	now := s.clock.Now()
	if from.Before(now) {
		from = now
	}
	if !to.IsZero() && !to.After(from) {
		return []domain.Slot{}, nil
	}
	return s.repo.ListAvailableSlots(ctx, from, to)
}
