package file

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// catalogFile mirrors the YAML layout. Sections left out keep the
// built-in values.
type catalogFile struct {
	Platform   *domain.Platform      `yaml:"platform"`
	Categories []domain.InfoCategory `yaml:"categories"`
	AMCSlugs   map[string]string     `yaml:"amc_slugs"`
	AMCDomains []string              `yaml:"amc_domains"`
}

// LoadCatalog reads a YAML knowledge base and merges it over
// domain.DefaultCatalog. A categories list replaces the built-in list
// wholesale, since its order is the match priority. AMC slugs are merged
// by name.
func LoadCatalog(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog is LoadCatalog over in-memory YAML.
func ParseCatalog(data []byte) (domain.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog: %w: %w", domain.ErrInvalidInput, err)
	}

	cat := domain.DefaultCatalog()
	if f.Platform != nil {
		cat.Platform = mergePlatform(cat.Platform, *f.Platform)
	}
	if len(f.Categories) > 0 {
		if err := validateCategories(f.Categories); err != nil {
			return domain.Catalog{}, err
		}
		cat.Categories = f.Categories
	}
	for name, slug := range f.AMCSlugs {
		cat.AMCSlugs[name] = slug
	}
	if len(f.AMCDomains) > 0 {
		cat.AMCDomains = f.AMCDomains
	}
	return cat, nil
}

// CatalogFromSettings returns the catalog the resolver should use: the
// YAML override if one is configured, with the platform settings applied
// on top.
func CatalogFromSettings(p domain.PlatformSettings) (domain.Catalog, error) {
	cat := domain.DefaultCatalog()
	if p.Catalog != "" {
		loaded, err := LoadCatalog(p.Catalog)
		if err != nil {
			return domain.Catalog{}, err
		}
		cat = loaded
	}
	cat.Platform = mergePlatform(cat.Platform, domain.Platform{
		Name:    p.Name,
		Domain:  p.Domain,
		BaseURL: p.BaseURL,
	})
	return cat, nil
}

func mergePlatform(base, over domain.Platform) domain.Platform {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.Domain != "" {
		base.Domain = strings.ToLower(over.Domain)
	}
	if over.BaseURL != "" {
		base.BaseURL = strings.TrimRight(over.BaseURL, "/")
	}
	return base
}

func validateCategories(cats []domain.InfoCategory) error {
	var errs []error
	seen := make(map[string]bool, len(cats))
	for i, c := range cats {
		switch {
		case c.Key == "":
			errs = append(errs, fmt.Errorf("category %d: missing key", i))
		case seen[c.Key]:
			errs = append(errs, fmt.Errorf("category %q: duplicate key", c.Key))
		}
		seen[c.Key] = true
		if c.PlatformAvailable && !c.ExternalRequired && c.URLTemplate != "" && !strings.HasPrefix(c.URLTemplate, "/") {
			errs = append(errs, fmt.Errorf("category %q: url_template must start with /", c.Key))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
