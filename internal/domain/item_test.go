package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("wishlist")
	require.NoError(t, err)
	assert.Equal(t, KindWishlist, k)

	_, err = ParseKind("basket")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantMsg string
	}{
		{"$24.00", 24.0, ""},
		{"12.5", 12.5, ""},
		{"USD 1,299.99", 1299.99, ""},
		{"0", 0, ""},
		{"", 0, MsgPriceMissing},
		{"free", 0, MsgPriceMissing},
		{"1.2.3", 0, MsgPriceInvalid},
		{".", 0, MsgPriceInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "price", appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$24.00", FormatPrice(24))
	assert.Equal(t, "$62.50", FormatPrice(62.5))
	assert.Equal(t, "$0.00", FormatPrice(0))
}

func TestProductInput_Unmarshal(t *testing.T) {
	var in ProductInput
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"name":"Bodkin","price":12.5}`), &in))
	assert.Equal(t, FlexString("42"), in.ID)
	assert.Equal(t, PriceNumber(12.5), in.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"id":null,"name":"Bodkin","price":"$12.50"}`), &in))
	assert.Equal(t, FlexString(""), in.ID)
	assert.Equal(t, PriceText("$12.50"), in.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"Bodkin","price":null}`), &in))
	assert.True(t, in.Price.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"price":{"amount":1}}`), &in))
}

func TestPrice_Value(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantMsg string
	}{
		{"number", `12.5`, 12.5, ""},
		{"exponent", `1e2`, 100, ""},
		{"fractional exponent", `2.5e1`, 25, ""},
		{"zero", `0`, 0, ""},
		{"negative number", `-5`, 0, MsgPriceInvalid},
		{"out of range", `1e400`, 0, MsgPriceInvalid},
		{"dollar text", `"$24.00"`, 24, ""},
		{"negative text is cleaned", `"-$5"`, 5, ""},
		{"null", `null`, 0, MsgPriceMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Price
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			got, err := p.Value()
			if tt.wantMsg != "" {
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantMsg, appErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrice_MarshalKeepsForm(t *testing.T) {
	out, err := json.Marshal(ProductInput{Name: "Bodkin", Price: PriceNumber(12.5)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":12.5`)

	out, err = json.Marshal(ProductInput{Name: "Bodkin", Price: PriceText("$12.50")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":"$12.50"`)
}

func TestItemIDs(t *testing.T) {
	withID := ProductInput{ID: "7", Name: "Bodkin", Price: PriceText("$12.50"), Image: "img/b.jpg"}
	assert.Equal(t, "product-7", CartItemID(withID))
	assert.Equal(t, "product-7", WishlistItemID(withID))

	noID := ProductInput{Name: "Bodkin", Price: PriceText("$12.5"), Image: "img/b.jpg"}
	assert.Equal(t, "product-Bodkin-img/b.jpg", CartItemID(noID))
	assert.Equal(t, "product-Bodkin-12.50", WishlistItemID(noID))
	assert.Equal(t, "product-Bodkin-", WishlistItemID(ProductInput{Name: "Bodkin"}))

	assert.Equal(t, CartItemID(noID), ItemID(KindCart, noID))
	assert.Equal(t, WishlistItemID(noID), ItemID(KindWishlist, noID))
}

func TestItemIDs_NumericAndTextPricesAgree(t *testing.T) {
	a := ProductInput{Name: "Wand", Price: PriceText("$30")}
	b := ProductInput{Name: "Wand", Price: PriceText("30.00")}
	c := ProductInput{Name: "Wand", Price: PriceNumber(30)}
	assert.Equal(t, WishlistItemID(a), WishlistItemID(b))
	assert.Equal(t, WishlistItemID(a), WishlistItemID(c))
}

func TestNewCartItem(t *testing.T) {
	li, err := NewCartItem(ProductInput{Name: "  Bodkin ", Price: PriceText("$12.50"), Note: " engrave A "})
	require.NoError(t, err)

	want := LineItem{
		ItemID:    "product-Bodkin-",
		Name:      "Bodkin",
		UnitPrice: 12.5,
		PriceText: "$12.50",
		Quantity:  1,
		AltText:   "Bodkin",
		Note:      "engrave A",
	}
	if diff := cmp.Diff(want, li); diff != "" {
		t.Errorf("NewCartItem mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCartItem_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    ProductInput
		field string
		msg   string
	}{
		{"blank name", ProductInput{Name: "   ", Price: PriceText("1")}, "name", MsgNameMissing},
		{"missing price", ProductInput{Name: "Bodkin"}, "price", MsgPriceMissing},
		{"bad price", ProductInput{Name: "Bodkin", Price: PriceText("1.2.3")}, "price", MsgPriceInvalid},
		{"negative number", ProductInput{Name: "Bodkin", Price: PriceNumber(-5)}, "price", MsgPriceInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCartItem(tt.in)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Equal(t, tt.msg, appErr.Message)
		})
	}
}

func TestNewWishlistItem(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	li, err := NewWishlistItem(ProductInput{ID: "9", Name: "Wand", Link: "/p/wand", Alt: "A wand"}, now)
	require.NoError(t, err)
	require.NotNil(t, li.ProductID)
	assert.Equal(t, "9", *li.ProductID)
	assert.Zero(t, li.UnitPrice)
	assert.Zero(t, li.Quantity)
	assert.Equal(t, "/p/wand", li.Link)
	assert.Equal(t, "A wand", li.AltText)
	require.NotNil(t, li.AddedAt)
	assert.True(t, now.Equal(*li.AddedAt))

	_, err = NewWishlistItem(ProductInput{}, now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestMergeNote(t *testing.T) {
	assert.Equal(t, "a", MergeNote("", "a"))
	assert.Equal(t, "a", MergeNote("a", ""))
	assert.Equal(t, "a", MergeNote("a", " a "))
	assert.Equal(t, "a\n\nb", MergeNote("a", "b"))
}

func TestSanitize(t *testing.T) {
	items := []LineItem{
		{ItemID: "product-1", Name: "One", Quantity: 0, UnitPrice: 5},
		{ItemID: "", Name: "No id"},
		{ItemID: "product-2", Name: " "},
		{ItemID: "product-1", Name: "Dup", Quantity: 3},
		{ItemID: "product-3", Name: "Three", Quantity: 2, UnitPrice: -1},
	}

	got, dropped := Sanitize(KindCart, items)
	assert.Equal(t, 3, dropped)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Quantity)
	assert.Equal(t, "product-3", got[1].ItemID)
	assert.Zero(t, got[1].UnitPrice)

	wl, _ := Sanitize(KindWishlist, []LineItem{{ItemID: "product-1", Name: "One"}})
	assert.Zero(t, wl[0].Quantity)
}

func TestNewSnapshot(t *testing.T) {
	items := []LineItem{
		{ItemID: "a", Name: "A", UnitPrice: 10, Quantity: 2},
		{ItemID: "b", Name: "B", UnitPrice: 5, Quantity: 1},
	}

	cart := NewSnapshot(KindCart, items)
	assert.Equal(t, 25.0, cart.Total)
	assert.Equal(t, 3, cart.Count)
	assert.True(t, cart.Contains("b"))
	assert.False(t, cart.Empty())

	items[0].Name = "mutated"
	assert.Equal(t, "A", cart.Items[0].Name)

	wl := NewSnapshot(KindWishlist, items)
	assert.Equal(t, 2, wl.Count)
	assert.Zero(t, wl.Total)

	assert.True(t, NewSnapshot(KindCart, nil).Empty())
}
