package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stockpiled/stockpile/internal/webserver"
	"github.com/stockpiled/stockpile/pkg/foodfacts"
)

// registerLookupRoutes registers the external barcode lookup
func registerLookupRoutes() {
	webserver.ApiGET("/lookup/:barcode", lookupBarcode)
}

// lookupBarcode resolves a scanned barcode against the external food
// product database. Failures are non-fatal notices, the form falls back
// to manual entry.
func lookupBarcode(c echo.Context) error {
	if !webserver.GetApp(c).GetSettingsBoolValue("lookup", "enabled") {
		return fail(c, http.StatusServiceUnavailable, "LOOKUP_DISABLED", "External lookup is disabled", nil)
	}

	barcode, err := parseIDParam(c, "barcode")
	if err != nil || barcode <= 0 {
		return fail(c, http.StatusBadRequest, "INVALID_BARCODE", "Invalid barcode", nil)
	}

	result, err := lookupClient.Lookup(c.Request().Context(), barcode)
	if errors.Is(err, foodfacts.ErrNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_UNKNOWN", "No product found for this barcode", nil)
	} else if err != nil {
		return fail(c, http.StatusBadGateway, "LOOKUP_FAILED", "External lookup failed", err.Error())
	}

	return ok(c, result)
}
