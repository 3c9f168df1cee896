package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/supportbase/keel/internal/config"
)

// Customer mirrors the commerce platform customer record.
type Customer struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	OrdersCount int    `json:"orders_count"`
	TotalSpent  string `json:"total_spent"`
}

// LineItem is one purchased item on an order.
type LineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// Order mirrors the commerce platform order record.
type Order struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	CreatedAt         time.Time  `json:"created_at"`
	TotalPrice        string     `json:"total_price"`
	FulfillmentStatus *string    `json:"fulfillment_status"`
	LineItems         []LineItem `json:"line_items"`
}

// Client speaks the Shopify Admin REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.ShopifyConfig) *Client {
	return &Client{
		baseURL: fmt.Sprintf("https://%s/admin/api/%s", cfg.Store, cfg.APIVersion),
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchCustomers looks up customers matching the query, best match first.
func (c *Client) SearchCustomers(ctx context.Context, query string) ([]Customer, error) {
	endpoint := fmt.Sprintf("/customers/search.json?query=%s&limit=10", url.QueryEscape(query))
	var payload struct {
		Customers []Customer `json:"customers"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Customers, nil
}

// CustomerOrders returns the customer's most recent orders.
func (c *Client) CustomerOrders(ctx context.Context, customerID int64, limit int) ([]Order, error) {
	endpoint := fmt.Sprintf("/orders.json?customer_id=%d&status=any&limit=%d", customerID, limit)
	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("shopify api error %d: %s", res.StatusCode, string(body))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
