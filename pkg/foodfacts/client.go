package foodfacts

import (
	"context"
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
)

const defaultBaseURL = "https://world.openfoodfacts.org"

// ErrNotFound is returned when the database has no product for a barcode.
var ErrNotFound = errors.New("product not found")

// Result is the subset of the lookup response the application uses.
type Result struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type lookupResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		ImageURL    string `json:"image_url"`
	} `json:"product"`
}

// Client queries the Open Food Facts product API.
type Client struct {
	baseURL string
	timeout time.Duration
}

func NewClient() *Client {
	return &Client{baseURL: defaultBaseURL, timeout: 10 * time.Second}
}

// NewClientWithBaseURL is used in tests to point at a stub server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{baseURL: baseURL, timeout: 10 * time.Second}
}

// Lookup resolves a barcode to a product name and image URL. A missing
// image yields the sentinel "none".
func (c *Client) Lookup(ctx context.Context, barcode int64) (*Result, error) {
	var resp lookupResponse
	var code int
	err := gout.GET(fmt.Sprintf("%s/api/v0/product/%d.json", c.baseURL, barcode)).
		WithContext(ctx).
		SetTimeout(c.timeout).
		Code(&code).
		BindJSON(&resp).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "lookup request failed")
	}
	if code == 404 || resp.Status == 0 {
		return nil, ErrNotFound
	}
	if code != 200 {
		return nil, errors.Errorf("lookup request failed with status %d", code)
	}

	result := &Result{
		Name:  resp.Product.ProductName,
		Image: resp.Product.ImageURL,
	}
	if result.Image == "" {
		result.Image = "none"
	}
	return result, nil
}
