package catalog

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey orders search results.
type SortKey string

const (
	SortName      SortKey = "name"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortNewest    SortKey = "newest"
)

// Query narrows a product listing. Nil bounds are inactive.
type Query struct {
	Text     string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     SortKey
}

// ParseQuery reads search, category, min_price, max_price and sort. Values
// that do not parse are ignored.
func ParseQuery(v url.Values) Query {
	q := Query{
		Text:     strings.TrimSpace(v.Get("search")),
		Category: strings.TrimSpace(v.Get("category")),
		MinPrice: parseBound(v.Get("min_price")),
		MaxPrice: parseBound(v.Get("max_price")),
		Sort:     SortName,
	}
	switch s := SortKey(v.Get("sort")); s {
	case SortName, SortPriceLow, SortPriceHigh, SortNewest:
		q.Sort = s
	}
	return q
}

func parseBound(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

// Filter returns the products matching q in q.Sort order. Text matches the
// name, description or category case-insensitively. While a price bound is
// set, unpriced products are left out. The input slice is not modified.
func Filter(products []Product, q Query) []Product {
	text := strings.ToLower(q.Text)
	category := q.Category
	if strings.EqualFold(category, "all") {
		category = ""
	}
	priced := q.MinPrice != nil || q.MaxPrice != nil

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Name), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) &&
			!strings.Contains(strings.ToLower(p.Category), text) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if priced {
			price, ok := p.PriceValue()
			if !ok || price == 0 {
				continue
			}
			if q.MinPrice != nil && price < *q.MinPrice {
				continue
			}
			if q.MaxPrice != nil && price > *q.MaxPrice {
				continue
			}
		}
		out = append(out, p)
	}

	sortProducts(out, q.Sort)
	return out
}

func sortProducts(ps []Product, key SortKey) {
	switch key {
	case SortPriceLow, SortPriceHigh:
		slices.SortStableFunc(ps, func(a, b Product) int {
			pa, _ := a.PriceValue()
			pb, _ := b.PriceValue()
			if key == SortPriceHigh {
				pa, pb = pb, pa
			}
			switch {
			case pa < pb:
				return -1
			case pa > pb:
				return 1
			}
			return 0
		})
	case SortNewest:
		// document order is publication order
	default:
		// A Collator is not safe for concurrent use.
		c := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(ps, func(a, b Product) int {
			return c.CompareString(a.Name, b.Name)
		})
	}
}
