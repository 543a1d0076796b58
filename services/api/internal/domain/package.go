package domain

import "sort"

const DefaultLanguage = "ro"

// PackageText is the translatable part of a package.
type PackageText struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Features    []string `json:"features" yaml:"features"`
}

// Package is a consultation offering from the catalog.
type Package struct {
	ID              string
	Translations    map[string]PackageText
	PriceMinor      int64
	Currency        string
	DurationMinutes int
	IsPopular       bool
	OrderIndex      int
	Active          bool
}

// Text returns the package text for lang, falling back to the default
// language and then to any translation present.
func (p Package) Text(lang string) PackageText {
	if t, ok := p.Translations[lang]; ok && t.Name != "" {
		return t
	}
	if t, ok := p.Translations[DefaultLanguage]; ok {
		return t
	}
	langs := make([]string, 0, len(p.Translations))
	for l := range p.Translations {
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		return PackageText{}
	}
	sort.Strings(langs)
	return p.Translations[langs[0]]
}
