package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godishuset/box-orders/internal/catalog"
	"github.com/godishuset/box-orders/internal/money"
)

type memCatalog map[string]catalog.Product

func (m memCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	p, ok := m[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type memRebates map[string]RebateCode

func (m memRebates) Code(_ context.Context, code string) (RebateCode, error) {
	rc, ok := m[code]
	if !ok {
		return RebateCode{}, ErrRebateNotFound
	}
	return rc, nil
}

func product(id string, gross, rate, cost int64, zonePrices [catalog.ZoneCount]int64, undeliverable ...int) catalog.Product {
	p := catalog.Product{ID: id, Name: id + " box", GrossPrice: gross, MomsRate: rate, CostPrice: cost}
	for z := range p.Delivery {
		p.Delivery[z] = catalog.ZonePrice{Zone: z, Deliverable: true, Price: zonePrices[z]}
	}
	for _, z := range undeliverable {
		p.Delivery[z].Deliverable = false
	}
	p.Normalize()
	return p
}

func testCatalog() memCatalog {
	return memCatalog{
		"treat":  product("treat", 39500, 12, 15000, [4]int64{0, 2500, 5000, 9000}, 3),
		"feast":  product("feast", 79500, 12, 30000, [4]int64{0, 3500, 6000, 12000}),
		"bubbly": product("bubbly", 12500, 25, 6000, [4]int64{0, 2500, 5000, 9000}),
	}
}

func requireAdditive(t *testing.T, st Statement) {
	t.Helper()
	require.Equal(t, st.FoodCost+st.DeliveryCost, st.Total)
	require.Equal(t, st.FoodMoms+st.DeliveryMoms, st.TotalMoms)
}

func TestPriceOrderEmptyBasket(t *testing.T) {
	po, err := PriceOrder(context.Background(), nil, nil, nil, testCatalog(), memRebates{})
	require.NoError(t, err)
	assert.Empty(t, po.Products)
	assert.Empty(t, po.Delivery)
	assert.Equal(t, Statement{}, po.BottomLine)
}

func TestPriceOrderCollection(t *testing.T) {
	basket := []BasketLine{{ProductID: "treat", Quantity: 1}}
	po, err := PriceOrder(context.Background(), basket, nil, nil, testCatalog(), memRebates{})
	require.NoError(t, err)

	require.Len(t, po.Products, 1)
	assert.Equal(t, "treat box", po.Products[0].Name)
	assert.Equal(t, int64(39500), po.BottomLine.FoodCost)
	assert.Equal(t, int64(0), po.BottomLine.DeliveryCost)
	assert.Equal(t, money.CalculateVAT(39500, 12), po.BottomLine.FoodMoms)
	requireAdditive(t, po.BottomLine)
}

func TestPriceOrderZoneDeliveryCharge(t *testing.T) {
	basket := []BasketLine{{ProductID: "treat", Quantity: 1}}
	recipients := []PricingRecipient{{
		ID: "r1", Zone: 2,
		Items: []BasketLine{{ProductID: "treat", Quantity: 1}},
	}}
	po, err := PriceOrder(context.Background(), basket, recipients, nil, testCatalog(), memRebates{})
	require.NoError(t, err)

	require.Len(t, po.Delivery, 1)
	assert.Equal(t, int64(5000), po.BottomLine.DeliveryCost)
	assert.Equal(t, money.CalculateVAT(5000, 25), po.BottomLine.DeliveryMoms)
	assert.Equal(t, int64(1000), po.BottomLine.DeliveryMoms)
	requireAdditive(t, po.BottomLine)
}

func TestPriceOrderMaxZonePriceAcrossProducts(t *testing.T) {
	// one recipient gets both a treat (5000 at zone 2) and a feast (6000):
	// the run is charged once, at the higher price
	basket := []BasketLine{
		{ProductID: "treat", Quantity: 1},
		{ProductID: "feast", Quantity: 1},
	}
	recipients := []PricingRecipient{{
		ID: "r1", Zone: 2,
		Items: basket,
	}}
	po, err := PriceOrder(context.Background(), basket, recipients, nil, testCatalog(), memRebates{})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), po.BottomLine.DeliveryCost)
}

func TestPriceOrderUnknownProduct(t *testing.T) {
	basket := []BasketLine{{ProductID: "nope", Quantity: 1}}
	po, err := PriceOrder(context.Background(), basket, nil, nil, testCatalog(), memRebates{})
	require.Nil(t, po)

	var unknown *UnknownProductError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.ProductID)
}

func TestPriceOrderUndeliverableZone(t *testing.T) {
	basket := []BasketLine{{ProductID: "treat", Quantity: 1}}
	recipients := []PricingRecipient{{
		ID: "r1", Zone: 3, // treat is not deliverable in zone 3
		Items: []BasketLine{{ProductID: "treat", Quantity: 1}},
	}}
	po, err := PriceOrder(context.Background(), basket, recipients, nil, testCatalog(), memRebates{})
	require.Nil(t, po)

	var zerr *UndeliverableZoneError
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, "r1", zerr.RecipientID)
	assert.Equal(t, "treat", zerr.ProductID)
	assert.Equal(t, 3, zerr.Zone)
}

func TestPriceOrderSplitAggregation(t *testing.T) {
	// however the basket is split across recipients, food cost stays the
	// basket-level sum
	basket := []BasketLine{
		{ProductID: "treat", Quantity: 2},
		{ProductID: "bubbly", Quantity: 1},
	}
	splits := [][]PricingRecipient{
		{
			{ID: "a", Zone: 1, Items: []BasketLine{{ProductID: "treat", Quantity: 2}, {ProductID: "bubbly", Quantity: 1}}},
		},
		{
			{ID: "a", Zone: 1, Items: []BasketLine{{ProductID: "treat", Quantity: 1}}},
			{ID: "b", Zone: 2, Items: []BasketLine{{ProductID: "treat", Quantity: 1}, {ProductID: "bubbly", Quantity: 1}}},
		},
	}
	wantFood := int64(2*39500 + 12500)
	for _, recipients := range splits {
		po, err := PriceOrder(context.Background(), basket, recipients, nil, testCatalog(), memRebates{})
		require.NoError(t, err)
		assert.Equal(t, wantFood, po.BottomLine.FoodCost)
		requireAdditive(t, po.BottomLine)
	}
}

func TestPriceOrderNoPartialResultOnError(t *testing.T) {
	basket := []BasketLine{
		{ProductID: "treat", Quantity: 1},
		{ProductID: "nope", Quantity: 1},
	}
	po, err := PriceOrder(context.Background(), basket, nil, nil, testCatalog(), memRebates{})
	require.Error(t, err)
	assert.Nil(t, po)
}

func TestRebatePercent(t *testing.T) {
	rebates := memRebates{
		"TEN": {Code: "TEN", Type: RebatePercent, Amount: 10, Active: true, Expires: time.Now().Add(time.Hour)},
	}
	basket := []BasketLine{{ProductID: "bubbly", Quantity: 1}} // 12500 gross, 2500 moms
	po, err := PriceOrder(context.Background(), basket, nil, []string{"ten"}, testCatalog(), rebates)
	require.NoError(t, err)
	assert.Equal(t, int64(11250), po.BottomLine.FoodCost)
	assert.Equal(t, int64(2250), po.BottomLine.FoodMoms)
	assert.Empty(t, po.IgnoredRebates)
	requireAdditive(t, po.BottomLine)
}

func TestRebateFreeZone3(t *testing.T) {
	rebates := memRebates{
		"FARAWAY": {Code: "FARAWAY", Type: RebateFreeZone3, Active: true, Expires: time.Now().Add(time.Hour)},
	}
	basket := []BasketLine{{ProductID: "feast", Quantity: 2}}
	recipients := []PricingRecipient{
		{ID: "near", Zone: 1, Items: []BasketLine{{ProductID: "feast", Quantity: 1}}},
		{ID: "far", Zone: 3, Items: []BasketLine{{ProductID: "feast", Quantity: 1}}},
	}
	po, err := PriceOrder(context.Background(), basket, recipients, []string{"FARAWAY"}, testCatalog(), rebates)
	require.NoError(t, err)
	// zone 1 still charged, zone 3 waived
	assert.Equal(t, int64(3500), po.BottomLine.DeliveryCost)
	assert.Equal(t, int64(0), po.Delivery[1].Price)
	requireAdditive(t, po.BottomLine)
}

func TestRebateCostPrice(t *testing.T) {
	rebates := memRebates{
		"STAFF": {Code: "STAFF", Type: RebateCostPrice, Active: true, Expires: time.Now().Add(time.Hour)},
	}
	basket := []BasketLine{{ProductID: "treat", Quantity: 2}}
	po, err := PriceOrder(context.Background(), basket, nil, []string{"STAFF"}, testCatalog(), rebates)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), po.BottomLine.FoodCost)
	assert.Equal(t, 2*money.CalculateVAT(15000, 12), po.BottomLine.FoodMoms)
	requireAdditive(t, po.BottomLine)
}

func TestRebateIgnoredWhenUnusable(t *testing.T) {
	rebates := memRebates{
		"OLD": {Code: "OLD", Type: RebatePercent, Amount: 50, Active: true, Expires: time.Now().Add(-time.Hour)},
		"OFF": {Code: "OFF", Type: RebatePercent, Amount: 50, Active: false, Expires: time.Now().Add(time.Hour)},
	}
	basket := []BasketLine{{ProductID: "bubbly", Quantity: 1}}
	po, err := PriceOrder(context.Background(), basket, nil, []string{"OLD", "OFF", "MISSING"}, testCatalog(), rebates)
	require.NoError(t, err)
	// bad codes never fail the order, they just do nothing
	assert.Equal(t, int64(12500), po.BottomLine.FoodCost)
	assert.Equal(t, []string{"OLD", "OFF", "MISSING"}, po.IgnoredRebates)
}

func TestPriceOrderZeroQuantityLines(t *testing.T) {
	basket := []BasketLine{
		{ProductID: "treat", Quantity: 0},
		{ProductID: "bubbly", Quantity: 1},
	}
	po, err := PriceOrder(context.Background(), basket, nil, nil, testCatalog(), memRebates{})
	require.NoError(t, err)
	assert.Equal(t, int64(12500), po.BottomLine.FoodCost)
}

func TestPriceOrderDeterministic(t *testing.T) {
	basket := []BasketLine{{ProductID: "feast", Quantity: 3}, {ProductID: "bubbly", Quantity: 2}}
	recipients := []PricingRecipient{
		{ID: "a", Zone: 2, Items: []BasketLine{{ProductID: "feast", Quantity: 3}, {ProductID: "bubbly", Quantity: 2}}},
	}
	first, err := PriceOrder(context.Background(), basket, recipients, nil, testCatalog(), memRebates{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := PriceOrder(context.Background(), basket, recipients, nil, testCatalog(), memRebates{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
