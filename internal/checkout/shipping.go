package checkout

import (
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Shipping rates in dollars.
const (
	FreeShippingThreshold = 150.0
	USShipping            = 12.0
	CAShipping            = 25.0
	InternationalShipping = 35.0
)

// MsgZipRequired is shown when shipping is estimated without a postal code.
const MsgZipRequired = "Please enter a postal/zip code to calculate shipping."

// EstimateShipping prices delivery to country for an order of subtotal.
// US orders of FreeShippingThreshold or more ship free.
func EstimateShipping(country, zip string, subtotal float64) (float64, error) {
	if strings.TrimSpace(zip) == "" {
		return 0, apperrors.Validation("zip", MsgZipRequired)
	}
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "US":
		if subtotal >= FreeShippingThreshold {
			return 0, nil
		}
		return USShipping, nil
	case "CA":
		return CAShipping, nil
	default:
		return InternationalShipping, nil
	}
}
