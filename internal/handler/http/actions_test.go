package http

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productForm(control, store string) url.Values {
	return url.Values{
		"control":    {control},
		"store":      {store},
		"product_id": {"7"},
		"name":       {"Bodkin Point"},
		"price":      {"$12.50"},
		"image":      {"images/bodkin.jpg"},
	}
}

func fragment(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestDispatcher_AddThenIncrement(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.action(t, productForm("add", "cart"))
	require.Equal(t, http.StatusOK, rec.Code)
	res, _ := decode[ActionResponse](t, rec)
	assert.True(t, res.Changed)
	require.Contains(t, res.Fragments, "cart")
	assert.Equal(t, "1", fragment(t, res.Fragments["cart"]["badge"]).Find(".cart-badge").Text())
	assert.Contains(t, res.Toasts, "Item added to cart!")

	rec = env.action(t, url.Values{"control": {"increment"}, "store": {"cart"}, "id": {"product-7"}, "regions": {"badge"}})
	res, _ = decode[ActionResponse](t, rec)
	assert.True(t, res.Changed)
	assert.Equal(t, "2", fragment(t, res.Fragments["cart"]["badge"]).Find(".cart-badge").Text())
	assert.NotContains(t, res.Fragments["cart"], "list")
}

func TestDispatcher_QuantityAndRemove(t *testing.T) {
	env := newTestEnv(t, nil)
	env.action(t, productForm("add", "cart"))

	rec := env.action(t, url.Values{"control": {"quantity"}, "id": {"product-7"}, "quantity": {"4"}, "regions": {"total"}})
	res, _ := decode[ActionResponse](t, rec)
	assert.Equal(t, "$50.00", fragment(t, res.Fragments["cart"]["total"]).Find(".cart-total-amount").Text())

	rec = env.action(t, url.Values{"control": {"remove"}, "store": {"cart"}, "id": {"product-7"}})
	res, _ = decode[ActionResponse](t, rec)
	assert.True(t, res.Changed)
	empty := fragment(t, res.Fragments["cart"]["empty"]).Find(".cart-empty")
	_, hidden := empty.Attr("hidden")
	assert.False(t, hidden)
}

func TestDispatcher_BadQuantity(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.action(t, url.Values{"control": {"quantity"}, "id": {"product-7"}, "quantity": {"lots"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatcher_QuantityMustBePostedAndBounded(t *testing.T) {
	env := newTestEnv(t, nil)
	env.action(t, productForm("add", "cart"))

	tests := []struct {
		name   string
		values url.Values
	}{
		{"missing", url.Values{"control": {"quantity"}, "id": {"product-7"}}},
		{"empty", url.Values{"control": {"quantity"}, "id": {"product-7"}, "quantity": {" "}}},
		{"too large", url.Values{"control": {"quantity"}, "id": {"product-7"}, "quantity": {"10000"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.action(t, tt.values)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := env.action(t, url.Values{"control": {"increment"}, "id": {"product-7"}, "regions": {"badge"}})
	res, _ := decode[ActionResponse](t, rec)
	assert.Equal(t, "2", fragment(t, res.Fragments["cart"]["badge"]).Find(".cart-badge").Text(), "the line survived")
}

func TestDispatcher_ToggleAndMoveToCart(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.action(t, productForm("toggle", "wishlist"))
	res, _ := decode[ActionResponse](t, rec)
	assert.True(t, res.Changed)
	require.Contains(t, res.Fragments, "wishlist")
	assert.NotContains(t, res.Fragments, "cart")

	rec = env.action(t, url.Values{"control": {"move-to-cart"}, "store": {"wishlist"}, "id": {"product-7"}})
	res, _ = decode[ActionResponse](t, rec)
	assert.True(t, res.Changed)
	assert.Contains(t, res.Fragments, "cart")
	assert.Contains(t, res.Fragments, "wishlist")
	assert.Equal(t, 1, fragment(t, res.Fragments["wishlist"]["list"]).Find(".wishlist-item").Length())
	assert.Equal(t, 1, fragment(t, res.Fragments["cart"]["list"]).Find(".cart-item").Length())
}

func TestDispatcher_ClearWishlist(t *testing.T) {
	env := newTestEnv(t, nil)
	env.action(t, productForm("add", "wishlist"))

	rec := env.action(t, url.Values{"control": {"clear"}, "store": {"wishlist"}})
	res, _ := decode[ActionResponse](t, rec)
	assert.True(t, res.Changed)
	_, hidden := fragment(t, res.Fragments["wishlist"]["badge"]).Find(".wishlist-badge").Attr("hidden")
	assert.True(t, hidden)
}

func TestDispatcher_InvalidProductQueuesErrorToast(t *testing.T) {
	env := newTestEnv(t, nil)
	form := productForm("add", "cart")
	form.Set("price", "")

	rec := env.action(t, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/fragments/toasts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, html(t, rec).Find(`.toast.error[role="alert"]`).Length())
}

func TestDispatcher_UnknownControlIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.action(t, url.Values{"control": {"checkout"}, "store": {"cart"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDispatcher_CartOnlyControlOnWishlist(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.action(t, url.Values{"control": {"increment"}, "store": {"wishlist"}, "id": {"product-7"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatcher_UnknownStoreRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.action(t, url.Values{"control": {"remove"}, "store": {"basket"}, "id": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatcher_WireIsIdempotent(t *testing.T) {
	d := NewDispatcher(nil)
	d.Wire()
	first := d.controls
	d.Wire()
	d.Wire()

	assert.Len(t, d.controls, 8)
	assert.Equal(t, len(first), len(d.controls))
	for c := range first {
		assert.Contains(t, d.controls, c)
	}
}
