package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shippingRequest struct {
	Country  string `json:"country" validate:"required,len=2"`
	Zip      string `json:"zip" validate:"notblank"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=99"`
}

func TestValidate_Success(t *testing.T) {
	s := shippingRequest{Country: "US", Zip: "10001", Quantity: 2}
	assert.NoError(t, Validate(s))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(shippingRequest{Zip: "10001"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["country"])
	assert.NotContains(t, fields, "Country")
}

func TestValidate_NotBlankRejectsWhitespace(t *testing.T) {
	err := Validate(shippingRequest{Country: "US", Zip: "   "})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["zip"])
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name  string
		input shippingRequest
		field string
		want  string
	}{
		{"len", shippingRequest{Country: "USA", Zip: "1"}, "country", "must be exactly 2 characters"},
		{"email", shippingRequest{Country: "US", Zip: "1", Email: "nope"}, "email", "must be a valid email address"},
		{"lte", shippingRequest{Country: "US", Zip: "1", Quantity: 120}, "quantity", "must be less than or equal to 99"},
		{"gte", shippingRequest{Country: "US", Zip: "1", Quantity: -1}, "quantity", "must be greater than or equal to 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			require.Error(t, err)

			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.want, valErr.Fields()[tt.field])
		})
	}
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(shippingRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'country'")
	assert.Contains(t, err.Error(), "is required")
}

type controlRequest struct {
	Store string `json:"store" validate:"oneof=cart wishlist"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(controlRequest{Store: "basket"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be one of: cart wishlist", valErr.Fields()["store"])
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"country":"CA","zip":"K1A 0B1","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s shippingRequest
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, "CA", s.Country)
	assert.Equal(t, "K1A 0B1", s.Zip)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s shippingRequest
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_BodyTooLarge(t *testing.T) {
	big := `{"zip":"` + strings.Repeat("9", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))

	var s shippingRequest
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"country":"","zip":"1"}`))

	var s shippingRequest
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestDecode_SkipsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"country":" us "}`))

	var s shippingRequest
	require.NoError(t, Decode(req, &s))
	assert.Equal(t, " us ", s.Country)
}
