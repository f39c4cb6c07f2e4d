// Package render projects cart and wishlist snapshots, toasts and catalog
// listings onto the HTML fragments the storefront pages swap in.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/pkg/pagination"
)

//go:embed templates/*.html
var templateFS embed.FS

// Region names one part of a store's view.
type Region string

const (
	RegionBadge Region = "badge"
	RegionList  Region = "list"
	RegionEmpty Region = "empty"
	RegionTotal Region = "total"
)

// AllRegions is the render order used when no region is requested.
var AllRegions = []Region{RegionBadge, RegionList, RegionEmpty, RegionTotal}

// ParseRegions splits a comma separated region list. Empty input selects
// every region.
func ParseRegions(s string) []Region {
	var out []Region
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, Region(part))
		}
	}
	if len(out) == 0 {
		return AllRegions
	}
	return out
}

// Renderer executes the embedded templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("storefront").Funcs(template.FuncMap{
		"price":         domain.FormatPrice,
		"plural":        plural,
		"wishlistLink":  wishlistLink,
		"wishlistPrice": wishlistPrice,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNew is New for package initialisation.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render writes the requested regions of snap, replacing whatever the page
// showed before. Regions a store does not have are skipped.
func (r *Renderer) Render(w io.Writer, snap domain.Snapshot, regions ...Region) error {
	if len(regions) == 0 {
		regions = AllRegions
	}
	for _, region := range regions {
		t := r.tmpl.Lookup(string(snap.Kind) + "-" + string(region))
		if t == nil {
			continue
		}
		if err := t.Execute(w, snap); err != nil {
			return fmt.Errorf("rendering %s %s: %w", snap.Kind, region, err)
		}
	}
	return nil
}

// Fragments renders every requested region into its own string, keyed by
// region name.
func (r *Renderer) Fragments(snap domain.Snapshot, regions ...Region) (map[string]string, error) {
	if len(regions) == 0 {
		regions = AllRegions
	}
	out := make(map[string]string, len(regions))
	for _, region := range regions {
		if r.tmpl.Lookup(string(snap.Kind)+"-"+string(region)) == nil {
			continue
		}
		var buf bytes.Buffer
		if err := r.Render(&buf, snap, region); err != nil {
			return nil, err
		}
		out[string(region)] = buf.String()
	}
	return out, nil
}

// RenderToasts writes the queued notifications. Nothing is written when
// there are none.
func (r *Renderer) RenderToasts(w io.Writer, msgs []notify.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.tmpl.ExecuteTemplate(w, "toasts", msgs)
}

// Listing is one page of catalog products.
type Listing struct {
	Page pagination.Result[catalog.Product]
	// Query is carried into the pagination links.
	Query url.Values
	// InWishlist marks products already wishlisted. Nil marks none.
	InWishlist func(domain.ProductInput) bool
}

type productCard struct {
	catalog.Product
	ItemID      string
	WishlistID  string
	InWishlist  bool
	PriceLabel  string
	Purchasable bool
	Responsive  bool
}

type productPage struct {
	Cards      []productCard
	Page       int
	TotalPages int
	TotalCount int
	PrevURL    string
	NextURL    string
}

// RenderProducts writes read-only product cards with their wishlist state.
func (r *Renderer) RenderProducts(w io.Writer, l Listing) error {
	page := productPage{
		Cards:      make([]productCard, 0, len(l.Page.Data)),
		Page:       l.Page.Page,
		TotalPages: l.Page.TotalPages,
		TotalCount: l.Page.TotalCount,
	}
	if l.Page.HasPrev {
		page.PrevURL = pageURL(l.Query, l.Page.Page-1)
	}
	if l.Page.HasNext {
		page.NextURL = pageURL(l.Query, l.Page.Page+1)
	}

	for _, p := range l.Page.Data {
		in := p.Input()
		card := productCard{
			Product:    p,
			ItemID:     domain.CartItemID(in),
			WishlistID: domain.WishlistItemID(in),
			PriceLabel: "Price on request",
			Responsive: p.ImageSmall != p.Image || p.ImageLarge != p.Image,
		}
		if v, ok := p.PriceValue(); ok {
			card.PriceLabel = domain.FormatPrice(v)
			card.Purchasable = true
		}
		if l.InWishlist != nil {
			card.InWishlist = l.InWishlist(in)
		}
		page.Cards = append(page.Cards, card)
	}
	return r.tmpl.ExecuteTemplate(w, "products", page)
}

// RenderSubcategories writes the collection cards of a category document.
func (r *Renderer) RenderSubcategories(w io.Writer, doc *catalog.Document) error {
	return r.tmpl.ExecuteTemplate(w, "subcategories", doc)
}

func pageURL(q url.Values, page int) string {
	v := url.Values{}
	for k, vals := range q {
		v[k] = append([]string(nil), vals...)
	}
	v.Set("page", strconv.Itoa(page))
	return "?" + v.Encode()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func wishlistLink(it domain.LineItem) string {
	if it.Link != "" {
		return it.Link
	}
	id := ""
	if it.ProductID != nil {
		id = *it.ProductID
	}
	return "product-detail.html?id=" + url.QueryEscape(id)
}

func wishlistPrice(it domain.LineItem) string {
	if it.UnitPrice == 0 && it.PriceText == "" {
		return "Price on request"
	}
	return domain.FormatPrice(it.UnitPrice)
}
