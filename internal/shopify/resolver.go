package shopify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const recentOrderLimit = 3

// OrderSummary is an order reduced for operator display.
type OrderSummary struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Date              string  `json:"date"`
	Total             string  `json:"total"`
	Items             string  `json:"items"`
	FulfillmentStatus *string `json:"fulfillmentStatus"`
}

// CustomerContext is what the resolver attaches to an inbound event.
// Customer is nil when the phone number matched nobody.
type CustomerContext struct {
	Customer     *Customer      `json:"customer"`
	RecentOrders []OrderSummary `json:"recentOrders"`
}

// DisplayName returns the customer's full name, or empty when unknown.
func (c CustomerContext) DisplayName() string {
	if c.Customer == nil {
		return ""
	}
	return strings.TrimSpace(c.Customer.FirstName + " " + c.Customer.LastName)
}

// CustomerAPI is the subset of the commerce client the resolver needs.
type CustomerAPI interface {
	SearchCustomers(ctx context.Context, query string) ([]Customer, error)
	CustomerOrders(ctx context.Context, customerID int64, limit int) ([]Order, error)
}

// Resolver correlates a phone number to a commerce customer record.
// A failed lookup is a legitimate outcome, never an error: most calls
// are from unknown numbers.
type Resolver struct {
	api      CustomerAPI
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewResolver constructs a resolver. cache may be nil.
func NewResolver(api CustomerAPI, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{api: api, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Resolve looks up the best customer match for a phone number plus up to
// 3 recent orders. Lookup failures degrade to an empty context.
func (r *Resolver) Resolve(ctx context.Context, phone string) CustomerContext {
	if cached, ok := r.fromCache(ctx, phone); ok {
		return cached
	}

	result := CustomerContext{RecentOrders: []OrderSummary{}}

	customers, err := r.api.SearchCustomers(ctx, phone)
	if err != nil {
		r.logger.Warn("shopify lookup failed", zap.String("phone", phone), zap.Error(err))
		return result
	}
	if len(customers) == 0 {
		r.toCache(ctx, phone, result)
		return result
	}

	customer := customers[0]
	result.Customer = &customer

	orders, err := r.api.CustomerOrders(ctx, customer.ID, recentOrderLimit)
	if err != nil {
		r.logger.Warn("shopify orders lookup failed", zap.Int64("customer_id", customer.ID), zap.Error(err))
	}
	for _, order := range orders {
		result.RecentOrders = append(result.RecentOrders, summarize(order))
	}

	r.toCache(ctx, phone, result)
	return result
}

func summarize(order Order) OrderSummary {
	titles := make([]string, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		titles = append(titles, item.Title)
	}
	return OrderSummary{
		ID:                order.ID,
		Name:              order.Name,
		Date:              order.CreatedAt.Format(time.RFC3339),
		Total:             order.TotalPrice,
		Items:             strings.Join(titles, ", "),
		FulfillmentStatus: order.FulfillmentStatus,
	}
}

func cacheKey(phone string) string {
	return "customer_ctx:" + phone
}

func (r *Resolver) fromCache(ctx context.Context, phone string) (CustomerContext, bool) {
	if r.cache == nil {
		return CustomerContext{}, false
	}
	raw, err := r.cache.Get(ctx, cacheKey(phone)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("customer cache read failed", zap.Error(err))
		}
		return CustomerContext{}, false
	}
	var cached CustomerContext
	if err := json.Unmarshal(raw, &cached); err != nil {
		return CustomerContext{}, false
	}
	return cached, true
}

func (r *Resolver) toCache(ctx context.Context, phone string, result CustomerContext) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(phone), raw, r.cacheTTL).Err(); err != nil {
		r.logger.Debug("customer cache write failed", zap.Error(err))
	}
}
