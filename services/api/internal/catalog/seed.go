// Package catalog loads the consultation packages from a YAML seed file.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type seedFile struct {
	Packages []seedPackage `yaml:"packages"`
}

type seedPackage struct {
	ID              string                        `yaml:"id"`
	PriceMinor      int64                         `yaml:"price_minor"`
	Price           string                        `yaml:"price"`
	Currency        string                        `yaml:"currency"`
	DurationMinutes int                           `yaml:"duration_minutes"`
	IsPopular       bool                          `yaml:"is_popular"`
	OrderIndex      *int                          `yaml:"order_index"`
	Active          *bool                         `yaml:"active"`
	Translations    map[string]domain.PackageText `yaml:"translations"`
}

// LoadFile reads and validates a seed file.
func LoadFile(path string) ([]domain.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a seed document. Packages default to active and take their
// position in the file as order_index unless one is given. Price may be given
// either in minor units or as a decimal string.
func Parse(r io.Reader) ([]domain.Package, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc seedFile
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]domain.Package, 0, len(doc.Packages))
	seen := make(map[string]struct{}, len(doc.Packages))
	for i, sp := range doc.Packages {
		pkg, err := sp.toDomain(i)
		if err != nil {
			return nil, fmt.Errorf("package %d: %w", i+1, err)
		}
		if pkg.ID != "" {
			if _, dup := seen[pkg.ID]; dup {
				return nil, fmt.Errorf("package %d: duplicate id %s", i+1, pkg.ID)
			}
			seen[pkg.ID] = struct{}{}
		}
		out = append(out, pkg)
	}
	return out, nil
}

func (sp seedPackage) toDomain(pos int) (domain.Package, error) {
	if len(sp.Translations) == 0 {
		return domain.Package{}, domain.ErrPackageNameRequired
	}
	price := sp.PriceMinor
	if sp.Price != "" {
		if price != 0 {
			return domain.Package{}, fmt.Errorf("%w: set price or price_minor, not both", domain.ErrInvalidAmount)
		}
		p, err := domain.ParseAmount(sp.Price)
		if err != nil {
			return domain.Package{}, err
		}
		price = p
	}

	pkg := domain.Package{
		ID:              strings.TrimSpace(sp.ID),
		Translations:    make(map[string]domain.PackageText, len(sp.Translations)),
		PriceMinor:      price,
		Currency:        strings.ToLower(strings.TrimSpace(sp.Currency)),
		DurationMinutes: sp.DurationMinutes,
		IsPopular:       sp.IsPopular,
		OrderIndex:      pos,
		Active:          true,
	}
	for lang, text := range sp.Translations {
		pkg.Translations[strings.ToLower(strings.TrimSpace(lang))] = text
	}
	if sp.OrderIndex != nil {
		pkg.OrderIndex = *sp.OrderIndex
	}
	if sp.Active != nil {
		pkg.Active = *sp.Active
	}
	return pkg, nil
}

type PackageUpserter interface {
	UpsertPackage(ctx context.Context, pkg domain.Package) (domain.Package, error)
}

// Seed upserts every package in order and stops at the first failure.
func Seed(ctx context.Context, dst PackageUpserter, pkgs []domain.Package) ([]domain.Package, error) {
	saved := make([]domain.Package, 0, len(pkgs))
	for _, p := range pkgs {
		s, err := dst.UpsertPackage(ctx, p)
		if err != nil {
			return saved, fmt.Errorf("upsert package %q: %w", p.Text(domain.DefaultLanguage).Name, err)
		}
		saved = append(saved, s)
	}
	return saved, nil
}
