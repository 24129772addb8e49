package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stockpiled/stockpile/internal/inventory"
	"github.com/stockpiled/stockpile/internal/webserver"
)

type productPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Ref      int64  `json:"ref" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
	Image    string `json:"image" validate:"omitempty,max=1024"`
}

type adjustPayload struct {
	Delta int64 `json:"delta" validate:"required"`
}

// registerProductRoutes registers the product endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiPOST("/products/:id/adjust", adjustProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	ownerID := currentUserID(c)
	if ownerID == 0 {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	}

	order := c.QueryParam("sort")
	if order == "" {
		order = webserver.GetApp(c).GetSettingsStringValue("inventory", "default_sort")
	}

	products, err := service.List(c.Request().Context(), ownerID, inventory.ParseSortOrder(order))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		products = inventory.Filter(products, q)
	}
	return ok(c, products)
}

func getProduct(c echo.Context) error {
	ownerID := currentUserID(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	p, err := service.Get(c.Request().Context(), ownerID, id)
	if errors.Is(err, inventory.ErrNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, p)
}

// createProduct reconciles the candidate against the owner's stock:
// an existing product with the same ref absorbs the quantity, anything
// else becomes a new product.
func createProduct(c echo.Context) error {
	ownerID := currentUserID(c)
	if ownerID == 0 {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}

	outcome, p, err := service.Upsert(c.Request().Context(),
		ownerID, payload.Name, payload.Ref, payload.Quantity, strings.TrimSpace(payload.Image))
	switch {
	case errors.Is(err, inventory.ErrDuplicateRef):
		return fail(c, http.StatusConflict, "DUPLICATE_REF",
			"More than one product holds this reference, resolve the duplicates first", nil)
	case errors.Is(err, inventory.ErrInvalidInput):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save product", err.Error())
	}

	addAuditLog(c, ownerID, "", string(outcome),
		fmt.Sprintf("product %s ref %d qty %d", p.Name, p.Ref, p.Quantity))
	return ok(c, map[string]interface{}{
		"outcome": outcome,
		"product": p,
	})
}

func updateProduct(c echo.Context) error {
	ownerID := currentUserID(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p, err := service.Update(c.Request().Context(), ownerID, id,
		strings.TrimSpace(payload.Name), payload.Ref, payload.Quantity)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	case errors.Is(err, inventory.ErrDuplicateRef):
		return fail(c, http.StatusConflict, "DUPLICATE_REF", "Another product already holds this reference", nil)
	case errors.Is(err, inventory.ErrInvalidInput):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}

	addAuditLog(c, ownerID, "", "update", fmt.Sprintf("product %d", id))
	return ok(c, p)
}

// adjustProduct applies a signed unit-step delta. A result of zero or
// below removes the product.
func adjustProduct(c echo.Context) error {
	ownerID := currentUserID(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload adjustPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse adjustment", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p, err := service.AdjustQuantity(c.Request().Context(), ownerID, id, payload.Delta)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to adjust quantity", err.Error())
	}

	if p == nil {
		addAuditLog(c, ownerID, "", "delete", fmt.Sprintf("product %d exhausted", id))
		return ok(c, map[string]interface{}{"id": id, "deleted": true})
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	ownerID := currentUserID(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	err = service.Delete(c.Request().Context(), ownerID, id)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}

	addAuditLog(c, ownerID, "", "delete", fmt.Sprintf("product %d", id))
	return ok(c, map[string]interface{}{"id": id})
}
