package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
)

func TestImagePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{`assets\images\bow.jpg`, "/assets/images/bow.jpg"},
		{"./images/bow.jpg", "/images/bow.jpg"},
		{"images/bow.jpg", "/images/bow.jpg"},
		{"/images/bow.jpg", "/images/bow.jpg"},
		{"https://cdn.example.com/bow.jpg", "https://cdn.example.com/bow.jpg"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ImagePath(tt.in))
		})
	}
}

func TestDocumentNormalize(t *testing.T) {
	doc := &Document{
		Category: Category{Name: "Knives"},
		Products: []Product{
			{Name: " Hunting Knife ", Price: domain.PriceText("$45.00"), Image: `img\knife.jpg`},
			{ID: "k-2", Name: "Skinner", Price: domain.PriceText("30"), Image: "img/skinner.jpg", ImageLarge: "img/skinner@2x.jpg", Category: "Tools"},
			{Name: "Whittler", Link: "custom.html"},
		},
		Subcategories: []Subcategory{{Name: "Folding", Image: "./img/folding.jpg"}},
	}
	doc.normalize()

	p := doc.Products[0]
	assert.Equal(t, "Hunting Knife", p.Name)
	assert.Equal(t, "/img/knife.jpg", p.Image)
	assert.Equal(t, "/img/knife.jpg", p.ImageSmall)
	assert.Equal(t, "Hunting Knife", p.Alt)
	assert.Equal(t, "hunting-knife", p.Slug)
	assert.Equal(t, "Knives", p.Category)
	assert.Equal(t, "product-detail.html?id=1&slug=hunting-knife", p.Link)

	p = doc.Products[1]
	assert.Equal(t, "/img/skinner@2x.jpg", p.ImageLarge)
	assert.Equal(t, "Tools", p.Category)
	assert.Equal(t, "product-detail.html?id=k-2&slug=skinner", p.Link)

	assert.Equal(t, "custom.html", doc.Products[2].Link)
	assert.Equal(t, "/img/folding.jpg", doc.Subcategories[0].Image)
	assert.Equal(t, "Folding", doc.Subcategories[0].Alt)
}

func TestProduct_PriceValueAndInput(t *testing.T) {
	p := Product{ID: "7", Name: "Bodkin", Price: domain.PriceText("$12.50"), Image: "/b.jpg", Alt: "A bodkin", Link: "p.html"}

	v, ok := p.PriceValue()
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = Product{Name: "Unpriced"}.PriceValue()
	assert.False(t, ok)

	in := p.Input()
	assert.Equal(t, "7", string(in.ID))
	assert.Equal(t, "$12.50", in.Price.Text)
	assert.Equal(t, "p.html", in.Link)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("product-bodkins"))
	assert.True(t, ValidName("knives"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("../etc/passwd"))
	assert.False(t, ValidName("Knives"))
	assert.False(t, ValidName("a/b"))
}
