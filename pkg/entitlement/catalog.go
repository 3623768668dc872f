package entitlement

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the full set of reference data: licenses, features and the
// grants between them.
type Catalog struct {
	Licenses []License
	Features []Feature
	Grants   []LicenseFeature
}

type catalogFile struct {
	Features []struct {
		Code        string `yaml:"code"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Category    string `yaml:"category"`
		Inactive    bool   `yaml:"inactive"`
	} `yaml:"features"`
	Licenses []struct {
		Code         string `yaml:"code"`
		Name         string `yaml:"name"`
		Description  string `yaml:"description"`
		MonthlyPrice int64  `yaml:"monthly_price"`
		YearlyPrice  int64  `yaml:"yearly_price"`
		Currency     string `yaml:"currency"`
		Active       bool   `yaml:"active"`
		Features     []struct {
			Code     string  `yaml:"code"`
			Limit    *int64  `yaml:"limit"`
			Period   *string `yaml:"period"`
			Disabled bool    `yaml:"disabled"`
		} `yaml:"features"`
	} `yaml:"licenses"`
}

// DefaultCatalog returns the built-in tier catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}

	c := &Catalog{}
	known := make(map[FeatureCode]bool, len(raw.Features))
	for _, f := range raw.Features {
		code, err := ParseFeatureCode(f.Code)
		if err != nil {
			return nil, errors.Join(ErrInvalidCatalog, err)
		}
		if known[code] {
			return nil, fmt.Errorf("%w: duplicate feature %s", ErrInvalidCatalog, code)
		}
		known[code] = true
		c.Features = append(c.Features, Feature{
			Code:        code,
			Name:        f.Name,
			Description: f.Description,
			Category:    f.Category,
			Active:      !f.Inactive,
		})
	}

	seenLicense := make(map[LicenseCode]bool, len(raw.Licenses))
	for _, l := range raw.Licenses {
		code, err := ParseLicenseCode(l.Code)
		if err != nil {
			return nil, errors.Join(ErrInvalidCatalog, err)
		}
		if seenLicense[code] {
			return nil, fmt.Errorf("%w: duplicate license %s", ErrInvalidCatalog, code)
		}
		seenLicense[code] = true

		if l.MonthlyPrice < 0 || l.YearlyPrice < 0 {
			return nil, fmt.Errorf("%w: license %s has a negative price", ErrInvalidCatalog, code)
		}
		currency := l.Currency
		if currency == "" {
			currency = "USD"
		}
		c.Licenses = append(c.Licenses, License{
			Code:         code,
			Name:         l.Name,
			Description:  l.Description,
			MonthlyPrice: l.MonthlyPrice,
			YearlyPrice:  l.YearlyPrice,
			Currency:     currency,
			Active:       l.Active,
		})

		granted := make(map[FeatureCode]bool, len(l.Features))
		for _, g := range l.Features {
			fc, err := ParseFeatureCode(g.Code)
			if err != nil {
				return nil, errors.Join(ErrInvalidCatalog, err)
			}
			if !known[fc] {
				return nil, fmt.Errorf("%w: license %s grants undeclared feature %s", ErrInvalidCatalog, code, fc)
			}
			if granted[fc] {
				return nil, fmt.Errorf("%w: license %s grants %s twice", ErrInvalidCatalog, code, fc)
			}
			granted[fc] = true

			grant := LicenseFeature{License: code, Feature: fc, Enabled: !g.Disabled}
			switch {
			case g.Limit == nil && g.Period == nil:
			case g.Limit != nil && g.Period != nil:
				if *g.Limit < 0 {
					return nil, fmt.Errorf("%w: %s/%s has a negative limit", ErrInvalidCatalog, code, fc)
				}
				p, err := ParsePeriod(*g.Period)
				if err != nil {
					return nil, errors.Join(ErrInvalidCatalog, err)
				}
				limit := *g.Limit
				grant.LimitValue = &limit
				grant.LimitPeriod = &p
			default:
				return nil, fmt.Errorf("%w: %s/%s must set both limit and period or neither", ErrInvalidCatalog, code, fc)
			}
			c.Grants = append(c.Grants, grant)
		}
	}

	return c, nil
}
