package region

import (
	"slices"

	"github.com/FranksOps/dogbook/internal/apperr"
)

// Region is a market segment with its own language set and query topics.
type Region string

const (
	Global   Region = "global"
	India    Region = "india"
	TaiwanHK Region = "taiwan_hk"
	Latam    Region = "latam"
)

// All lists every region in collection order.
var All = []Region{Global, India, TaiwanHK, Latam}

// Category is a content classification.
type Category string

const (
	Politics      Category = "politics"
	Economy       Category = "economy"
	Tech          Category = "tech"
	Entertainment Category = "entertainment"
	Sports        Category = "sports"
)

// Categories lists every valid category.
var Categories = []Category{Politics, Economy, Tech, Entertainment, Sports}

// Locales are the display languages the site renders.
var Locales = []string{"en", "zh-TW", "hi", "pt", "es"}

// ParseRegion validates s against the closed set of regions.
func ParseRegion(s string) (Region, error) {
	r := Region(s)
	if !slices.Contains(All, r) {
		return "", &apperr.ValidationError{Field: "region", Value: s, Reason: "not a known region"}
	}
	return r, nil
}

// ParseCategory validates s against the closed set of categories.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", &apperr.ValidationError{Field: "category", Value: s, Reason: "not a known category"}
	}
	return c, nil
}

// IsLocale reports whether s is a supported display language.
func IsLocale(s string) bool {
	return slices.Contains(Locales, s)
}

// ParseList parses a list of region names. An empty list selects every region.
func ParseList(names []string) ([]Region, error) {
	if len(names) == 0 {
		return slices.Clone(All), nil
	}
	out := make([]Region, 0, len(names))
	for _, n := range names {
		r, err := ParseRegion(n)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}
