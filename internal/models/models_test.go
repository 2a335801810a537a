package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID int64, price string, qty int) CartItem {
	return CartItem{
		Product:  Product{ID: productID, Price: decimal.RequireFromString(price)},
		Quantity: qty,
	}
}

func TestNewCartView_TotalIsSumOfSubtotals(t *testing.T) {
	view := NewCartView([]CartItem{item(1, "100", 2), item(2, "50", 1)})

	assert.True(t, decimal.NewFromInt(250).Equal(view.Total), "got %s", view.Total)
	assert.Equal(t, 2, view.Count)
	assert.Len(t, view.Items, 2)
}

func TestNewCartView_KeepsCentPrecision(t *testing.T) {
	view := NewCartView([]CartItem{item(1, "0.10", 3), item(2, "0.20", 1)})
	assert.Equal(t, "0.5", view.Total.String())
}

func TestNewCartView_Empty(t *testing.T) {
	view := NewCartView(nil)

	assert.True(t, view.Total.IsZero())
	assert.Equal(t, 0, view.Count)
	require.NotNil(t, view.Items)

	b, err := json.Marshal(view)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cart_items":[],"cart_total":0,"cart_count":0}`, string(b))
}

func TestCartItem_JSONIsFlat(t *testing.T) {
	ci := item(7, "129999", 2)
	ci.CartItemID = 3
	ci.Name = "iPhone 15 Pro"
	ci.Specs = Specs{"ram": "8GB"}
	ci.ResolveImageURL()

	b, err := json.Marshal(ci)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.EqualValues(t, 7, got["id"])
	assert.EqualValues(t, 3, got["cart_item_id"])
	assert.EqualValues(t, 2, got["quantity"])
	assert.EqualValues(t, 129999, got["price"])
	assert.Equal(t, "/static/images/products/default.png", got["image_url"])
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "/static/images/products/phone1.png", ImageURL("phone1.png"))
	assert.Equal(t, "/static/images/products/default.png", ImageURL(""))
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	b, err := json.Marshal(User{ID: 1, FullName: "John Doe", PasswordHash: "$2a$10$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.Contains(t, string(b), `"name":"John Doe"`)
}

func TestSpecs_ScanAndValue(t *testing.T) {
	var s Specs
	require.NoError(t, s.Scan([]byte(`{"ram":"8GB","storage":"256GB"}`)))
	assert.Equal(t, Specs{"ram": "8GB", "storage": "256GB"}, s)

	require.NoError(t, s.Scan(nil))
	assert.Equal(t, Specs{}, s)

	require.NoError(t, s.Scan(""))
	assert.Equal(t, Specs{}, s)

	assert.Error(t, s.Scan(42))
	assert.Error(t, s.Scan("not json"))

	v, err := Specs{"ram": "8GB"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"ram":"8GB"}`, v)

	v, err = Specs(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}
