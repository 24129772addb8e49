package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct_UpsertOutcomes(t *testing.T) {
	e := newTestServer(t)
	token := registerAndLogin(t, e)

	rec, resp := doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Milk",
		"ref":      1234,
		"quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "created", resp["outcome"])

	rec, resp = doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Milk",
		"ref":      1234,
		"quantity": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "merged", resp["outcome"])

	product := resp["product"].(map[string]interface{})
	assert.EqualValues(t, 5, product["quantity"])

	rec, _ = doRequest(t, e, http.MethodGet, "/api/products", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1, "merge must not create a second product")
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	e := newTestServer(t)
	token := registerAndLogin(t, e)

	rec, _ := doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"ref":      1234,
		"quantity": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing name")

	rec, _ = doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Milk",
		"ref":      1234,
		"quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "quantity must be positive")
}

func TestListProducts_SortAndSearch(t *testing.T) {
	e := newTestServer(t)
	token := registerAndLogin(t, e)

	for i, p := range []struct {
		name string
		ref  int64
		qty  int64
	}{
		{"Milk", 1, 5}, {"Rice", 2, 1}, {"Pasta", 3, 3},
	} {
		rec, _ := doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
			"name":     p.name,
			"ref":      p.ref,
			"quantity": p.qty,
		})
		require.Equal(t, http.StatusOK, rec.Code, "seed %d", i)
	}

	rec, _ := doRequest(t, e, http.MethodGet, "/api/products?sort=desc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.EqualValues(t, 5, list[0]["quantity"])
	assert.EqualValues(t, 1, list[2]["quantity"])

	rec, _ = doRequest(t, e, http.MethodGet, "/api/products?sort=asc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list[0]["quantity"])

	rec, _ = doRequest(t, e, http.MethodGet, "/api/products?q=rice", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Rice", list[0]["name"])
}

func TestListProducts_ScopedToOwner(t *testing.T) {
	e := newTestServer(t)
	alice := registerAndLogin(t, e)
	bob := registerAndLogin(t, e)

	rec, _ := doRequest(t, e, http.MethodPost, "/api/products", alice, map[string]interface{}{
		"name":     "Milk",
		"ref":      1234,
		"quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, e, http.MethodGet, "/api/products", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestAdjustProduct_DeleteAtZero(t *testing.T) {
	e := newTestServer(t)
	token := registerAndLogin(t, e)

	rec, resp := doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Milk",
		"ref":      1234,
		"quantity": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	product := resp["product"].(map[string]interface{})
	id := product["id"].(string)

	rec, resp = doRequest(t, e, http.MethodPost, fmt.Sprintf("/api/products/%s/adjust", id), token, map[string]interface{}{
		"delta": -1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["deleted"])

	rec, _ = doRequest(t, e, http.MethodGet, "/api/products/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct_EditAndCollision(t *testing.T) {
	e := newTestServer(t)
	token := registerAndLogin(t, e)

	rec, resp := doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Milk",
		"ref":      1,
		"quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Rice",
		"ref":      2,
		"quantity": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	riceID := resp["product"].(map[string]interface{})["id"].(string)

	rec, resp = doRequest(t, e, http.MethodPut, "/api/products/"+riceID, token, map[string]interface{}{
		"name":     "Brown rice",
		"ref":      2,
		"quantity": 6,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Brown rice", resp["name"])
	assert.EqualValues(t, 6, resp["quantity"])

	rec, resp = doRequest(t, e, http.MethodPut, "/api/products/"+riceID, token, map[string]interface{}{
		"name":     "Brown rice",
		"ref":      1,
		"quantity": 6,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_REF", resp["code"])
}

func TestDeleteProduct(t *testing.T) {
	e := newTestServer(t)
	token := registerAndLogin(t, e)

	rec, resp := doRequest(t, e, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":     "Milk",
		"ref":      1234,
		"quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	id := resp["product"].(map[string]interface{})["id"].(string)

	rec, _ = doRequest(t, e, http.MethodDelete, "/api/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, e, http.MethodDelete, "/api/products/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
