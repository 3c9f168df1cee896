package shopify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCustomerAPI struct {
	customers    []Customer
	orders       []Order
	searchErr    error
	ordersErr    error
	searches     []string
	orderLookups []int64
}

func (f *fakeCustomerAPI) SearchCustomers(_ context.Context, query string) ([]Customer, error) {
	f.searches = append(f.searches, query)
	return f.customers, f.searchErr
}

func (f *fakeCustomerAPI) CustomerOrders(_ context.Context, customerID int64, _ int) ([]Order, error) {
	f.orderLookups = append(f.orderLookups, customerID)
	return f.orders, f.ordersErr
}

func TestResolveMatchedCustomerWithOrders(t *testing.T) {
	status := "fulfilled"
	api := &fakeCustomerAPI{
		customers: []Customer{{ID: 42, FirstName: "Jane", LastName: "Doe", OrdersCount: 5}},
		orders: []Order{{
			ID:                1042,
			Name:              "#1042",
			CreatedAt:         time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			TotalPrice:        "59.99",
			FulfillmentStatus: &status,
			LineItems:         []LineItem{{Title: "Dubia Roaches 500ct", Quantity: 1}, {Title: "Superworms", Quantity: 2}},
		}},
	}
	resolver := NewResolver(api, nil, time.Minute, zap.NewNop())

	result := resolver.Resolve(context.Background(), "+15551234567")

	require.NotNil(t, result.Customer)
	assert.Equal(t, int64(42), result.Customer.ID)
	assert.Equal(t, "Jane Doe", result.DisplayName())
	assert.Equal(t, []string{"+15551234567"}, api.searches)
	assert.Equal(t, []int64{42}, api.orderLookups)

	require.Len(t, result.RecentOrders, 1)
	order := result.RecentOrders[0]
	assert.Equal(t, "#1042", order.Name)
	assert.Equal(t, "Dubia Roaches 500ct, Superworms", order.Items)
	assert.Equal(t, "2026-08-01T12:00:00Z", order.Date)
}

func TestResolveUnknownNumber(t *testing.T) {
	resolver := NewResolver(&fakeCustomerAPI{}, nil, time.Minute, zap.NewNop())

	result := resolver.Resolve(context.Background(), "+15551234567")

	assert.Nil(t, result.Customer)
	assert.Empty(t, result.RecentOrders)
	assert.Empty(t, result.DisplayName())
}

func TestResolveDegradesOnLookupFailure(t *testing.T) {
	api := &fakeCustomerAPI{searchErr: errors.New("shopify api error 429")}
	resolver := NewResolver(api, nil, time.Minute, zap.NewNop())

	result := resolver.Resolve(context.Background(), "+15551234567")

	assert.Nil(t, result.Customer)
	assert.NotNil(t, result.RecentOrders)
}

func TestResolveKeepsCustomerWhenOrdersFail(t *testing.T) {
	api := &fakeCustomerAPI{
		customers: []Customer{{ID: 42, FirstName: "Jane"}},
		ordersErr: errors.New("shopify api error 500"),
	}
	resolver := NewResolver(api, nil, time.Minute, zap.NewNop())

	result := resolver.Resolve(context.Background(), "+15551234567")

	require.NotNil(t, result.Customer)
	assert.Empty(t, result.RecentOrders)
}
