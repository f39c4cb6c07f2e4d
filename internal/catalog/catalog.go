// Package catalog loads the read-only product documents pages are built
// from and filters them for search.
package catalog

import (
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/slug"
)

// Category heads a document.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Product is one entry of a document's products array.
type Product struct {
	ID          domain.FlexString `json:"id,omitempty"`
	Name        string            `json:"name"`
	Price       domain.Price      `json:"price"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Image       string            `json:"image,omitempty"`
	ImageSmall  string            `json:"imageSmall,omitempty"`
	ImageLarge  string            `json:"imageLarge,omitempty"`
	Alt         string            `json:"alt,omitempty"`
	Slug        string            `json:"slug,omitempty"`
	Link        string            `json:"link,omitempty"`
}

// PriceValue parses Price. ok is false for unpriced products.
func (p Product) PriceValue() (float64, bool) {
	v, err := p.Price.Value()
	if err != nil {
		return 0, false
	}
	return v, true
}

// Input is the product identity handed to the cart and wishlist.
func (p Product) Input() domain.ProductInput {
	return domain.ProductInput{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Image: p.Image,
		Alt:   p.Alt,
		Link:  p.Link,
	}
}

// Subcategory is a card on a category page linking to a product document.
type Subcategory struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageSmall  string `json:"imageSmall,omitempty"`
	ImageLarge  string `json:"imageLarge,omitempty"`
	Alt         string `json:"alt,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Document is one <name>.json file.
type Document struct {
	Name          string        `json:"-"`
	Category      Category      `json:"category"`
	Products      []Product     `json:"products"`
	Subcategories []Subcategory `json:"subcategories"`
}

// normalize fills derived fields in place: image paths, slugs, links and
// the category of each product.
func (d *Document) normalize() {
	for i := range d.Products {
		p := &d.Products[i]
		p.Name = strings.TrimSpace(p.Name)
		p.ImageSmall = ImagePath(firstNonEmpty(p.ImageSmall, p.Image))
		p.ImageLarge = ImagePath(firstNonEmpty(p.ImageLarge, p.Image))
		p.Image = ImagePath(p.Image)
		if p.Alt == "" {
			p.Alt = p.Name
		}
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Name)
		}
		if p.Category == "" {
			p.Category = d.Category.Name
		}
		if p.Link == "" {
			id := string(p.ID)
			if id == "" {
				id = strconv.Itoa(i + 1)
			}
			p.Link = "product-detail.html?id=" + id + "&slug=" + p.Slug
		}
	}
	for i := range d.Subcategories {
		s := &d.Subcategories[i]
		s.ImageSmall = ImagePath(firstNonEmpty(s.ImageSmall, s.Image))
		s.ImageLarge = ImagePath(firstNonEmpty(s.ImageLarge, s.Image))
		s.Image = ImagePath(s.Image)
		if s.Alt == "" {
			s.Alt = s.Name
		}
	}
}

// ImagePath turns backslashes into slashes and makes relative paths
// root-relative. Absolute, http(s) and data: URLs are kept.
//
//	`assets\img\bow.jpg` -> "/assets/img/bow.jpg"
//	"./img/bow.jpg"      -> "/img/bow.jpg"
func ImagePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "http") || strings.HasPrefix(p, "data:") {
		return p
	}
	return "/" + strings.TrimLeft(strings.TrimPrefix(p, "./"), "/")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
