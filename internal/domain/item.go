package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Kind names one of the two item lists a session owns.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// ParseKind validates a store name taken from a request.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCart, KindWishlist:
		return Kind(s), nil
	}
	return "", apperrors.InvalidInput(fmt.Sprintf("unknown store %q", s))
}

// Shopper-facing validation messages.
const (
	MsgInvalidProduct = "Invalid product data. Please try again."
	MsgNameMissing    = "Product name is missing. Please try again."
	MsgPriceMissing   = "Product price is missing. Please try again."
	MsgPriceInvalid   = "Invalid product price. Please try again."
)

// LineItem is one entry of a cart or wishlist.
type LineItem struct {
	ItemID    string     `json:"item_id"`
	ProductID *string    `json:"product_id"`
	Name      string     `json:"name"`
	UnitPrice float64    `json:"unit_price"`
	PriceText string     `json:"price_text,omitempty"`
	Quantity  int        `json:"quantity,omitempty"`
	ImageURL  string     `json:"image_url"`
	AltText   string     `json:"alt_text"`
	Link      string     `json:"link,omitempty"`
	Note      string     `json:"note,omitempty"`
	AddedAt   *time.Time `json:"added_at,omitempty"`
}

// Subtotal is UnitPrice times Quantity.
func (li LineItem) Subtotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// FlexString decodes a JSON string, number or null into its textual form.
// Product ids arrive as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*f = FlexString(n.String())
	}
	return nil
}

// ProductInput is the product identity handed to Add, Toggle and Contains.
type ProductInput struct {
	ID    FlexString `json:"id,omitempty"`
	Name  string     `json:"name"`
	Price Price      `json:"price"`
	Image string     `json:"image,omitempty"`
	Alt   string     `json:"alt,omitempty"`
	Note  string     `json:"note,omitempty"`
	Link  string     `json:"link,omitempty"`
}

func (in ProductInput) trimmed() ProductInput {
	in.ID = FlexString(strings.TrimSpace(string(in.ID)))
	in.Name = strings.TrimSpace(in.Name)
	in.Price.Text = strings.TrimSpace(in.Price.Text)
	in.Note = strings.TrimSpace(in.Note)
	return in
}

// Price is a product price as received. JSON numbers keep their numeric
// value; strings keep their text and are cleaned by ParsePrice.
type Price struct {
	Text    string
	Number  float64
	Numeric bool
}

// PriceText wraps a textual price such as "$24.00".
func PriceText(s string) Price { return Price{Text: s} }

// PriceNumber wraps a numeric price.
func PriceNumber(v float64) Price {
	return Price{Text: strconv.FormatFloat(v, 'f', -1, 64), Number: v, Numeric: true}
}

// IsZero reports whether no price was given.
func (p Price) IsZero() bool { return !p.Numeric && p.Text == "" }

func (p Price) String() string { return p.Text }

// Value returns the unit price. Numbers must be finite and not negative;
// text goes through ParsePrice.
func (p Price) Value() (float64, error) {
	if !p.Numeric {
		return ParsePrice(p.Text)
	}
	if math.IsNaN(p.Number) || math.IsInf(p.Number, 0) || p.Number < 0 {
		return 0, apperrors.Validation("price", MsgPriceInvalid)
	}
	return p.Number, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = Price{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceText(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		// Out of range numbers parse to ±Inf, which Value rejects.
		v, _ := strconv.ParseFloat(n.String(), 64)
		*p = Price{Text: n.String(), Number: v, Numeric: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Numbers JSON cannot hold are
// written as their original text.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.Numeric && !math.IsNaN(p.Number) && !math.IsInf(p.Number, 0) {
		return json.Marshal(p.Number)
	}
	return json.Marshal(p.Text)
}

var nonPriceChars = regexp.MustCompile(`[^0-9.]`)

// ParsePrice strips everything but digits and dots and parses the rest, so
// "$24.00" becomes 24. An empty result is a missing price.
func ParsePrice(text string) (float64, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, apperrors.Validation("price", MsgPriceMissing)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, apperrors.Validation("price", MsgPriceInvalid)
	}
	return v, nil
}

// FormatPrice renders a price the way the storefront displays it.
func FormatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// CartItemID derives the cart identity: the product id when present, the
// name and image otherwise.
func CartItemID(in ProductInput) string {
	in = in.trimmed()
	if in.ID != "" {
		return "product-" + string(in.ID)
	}
	return "product-" + in.Name + "-" + in.Image
}

// WishlistItemID derives the wishlist identity: the product id when present,
// the name and the price normalised to two decimals otherwise.
func WishlistItemID(in ProductInput) string {
	in = in.trimmed()
	if in.ID != "" {
		return "product-" + string(in.ID)
	}
	price := ""
	if !in.Price.IsZero() {
		if v, err := in.Price.Value(); err == nil {
			price = strconv.FormatFloat(v, 'f', 2, 64)
		}
	}
	return "product-" + in.Name + "-" + price
}

// ItemID derives the identity of in for the given list.
func ItemID(kind Kind, in ProductInput) string {
	if kind == KindWishlist {
		return WishlistItemID(in)
	}
	return CartItemID(in)
}

// NewCartItem validates in and builds a cart entry with quantity 1.
func NewCartItem(in ProductInput) (LineItem, error) {
	in = in.trimmed()
	if in.Name == "" {
		return LineItem{}, apperrors.Validation("name", MsgNameMissing)
	}
	price, err := in.Price.Value()
	if err != nil {
		return LineItem{}, err
	}

	return LineItem{
		ItemID:    CartItemID(in),
		ProductID: optional(string(in.ID)),
		Name:      in.Name,
		UnitPrice: price,
		PriceText: in.Price.Text,
		Quantity:  1,
		ImageURL:  in.Image,
		AltText:   altOrName(in),
		Note:      in.Note,
	}, nil
}

// NewWishlistItem validates in and builds a wishlist entry added at now.
// Unpriced or unparsable prices are stored as 0.
func NewWishlistItem(in ProductInput, now time.Time) (LineItem, error) {
	in = in.trimmed()
	if in.Name == "" {
		return LineItem{}, apperrors.Validation("name", MsgNameMissing)
	}
	price, _ := in.Price.Value()
	added := now.UTC()

	return LineItem{
		ItemID:    WishlistItemID(in),
		ProductID: optional(string(in.ID)),
		Name:      in.Name,
		UnitPrice: price,
		PriceText: in.Price.Text,
		ImageURL:  in.Image,
		AltText:   altOrName(in),
		Link:      in.Link,
		AddedAt:   &added,
	}, nil
}

// MergeNote appends incoming to existing separated by a blank line. Empty
// or identical notes leave existing unchanged.
func MergeNote(existing, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	switch {
	case incoming == "", incoming == existing:
		return existing
	case existing == "":
		return incoming
	}
	return existing + "\n\n" + incoming
}

// Sanitize drops entries without an id or name, drops later duplicates of
// an id and raises cart quantities below 1 to 1. It returns the cleaned list
// and the number of entries dropped.
func Sanitize(kind Kind, items []LineItem) ([]LineItem, int) {
	out := make([]LineItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ItemID == "" || strings.TrimSpace(it.Name) == "" {
			continue
		}
		if _, dup := seen[it.ItemID]; dup {
			continue
		}
		seen[it.ItemID] = struct{}{}
		if math.IsNaN(it.UnitPrice) || math.IsInf(it.UnitPrice, 0) || it.UnitPrice < 0 {
			it.UnitPrice = 0
		}
		if kind == KindCart && it.Quantity < 1 {
			it.Quantity = 1
		}
		out = append(out, it)
	}
	return out, len(items) - len(out)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func altOrName(in ProductInput) string {
	if a := strings.TrimSpace(in.Alt); a != "" {
		return a
	}
	return in.Name
}
