package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/godishuset/box-orders/internal/catalog"
	"github.com/godishuset/box-orders/internal/money"
)

// Delivery is always charged at the standard VAT rate, independent of the
// (usually reduced) food rate.
const deliveryMomsRate = 25

type BasketLine struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type PricingRecipient struct {
	ID    string       `json:"id"`
	Zone  int          `json:"zone"`
	Items []BasketLine `json:"items"`
}

type PricedLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	SubTotal  int64  `json:"subTotal"`
	Moms      int64  `json:"moms"`
}

type DeliveryLine struct {
	RecipientID string `json:"recipientId"`
	Zone        int    `json:"zone"`
	Price       int64  `json:"price"`
	Moms        int64  `json:"moms"`
}

type PricedOrder struct {
	Products       []PricedLine   `json:"products"`
	Delivery       []DeliveryLine `json:"delivery"`
	BottomLine     Statement      `json:"bottomLine"`
	IgnoredRebates []string       `json:"ignoredRebates,omitempty"`
}

// PriceOrder computes the full cost breakdown for a basket and its delivery
// recipients. Deterministic for a fixed catalog; on any error no partial
// result is returned.
//
// Collection orders simply pass an empty recipients slice: no delivery lines,
// zero delivery cost.
func PriceOrder(ctx context.Context, basket []BasketLine, recipients []PricingRecipient,
	rebateCodes []string, cat catalog.Lookup, rebates RebateLookup) (*PricedOrder, error) {

	po := &PricedOrder{Products: []PricedLine{}, Delivery: []DeliveryLine{}}

	// Resolve each distinct product once; reused by basket and recipient loops.
	resolved := map[string]catalog.Product{}
	lookup := func(id string) (catalog.Product, error) {
		if p, ok := resolved[id]; ok {
			return p, nil
		}
		p, err := cat.Product(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, &UnknownProductError{ProductID: id}
		}
		if err != nil {
			return catalog.Product{}, err
		}
		resolved[id] = p
		return p, nil
	}

	var foodCost, foodMoms, foodCostAtCost, foodMomsAtCost int64
	for _, line := range basket {
		p, err := lookup(line.ProductID)
		if err != nil {
			return nil, err
		}
		subTotal := p.GrossPrice * line.Quantity
		momsSub := money.CalculateVAT(p.GrossPrice, p.MomsRate) * line.Quantity
		foodCost += subTotal
		foodMoms += momsSub
		// cost-price shadow totals, only consumed by the costprice rebate
		foodCostAtCost += p.CostPrice * line.Quantity
		foodMomsAtCost += money.CalculateVAT(p.CostPrice, p.MomsRate) * line.Quantity
		po.Products = append(po.Products, PricedLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			SubTotal:  subTotal,
			Moms:      momsSub,
		})
	}

	var deliveryCost, deliveryMoms int64
	for _, rec := range recipients {
		// The recipient's charge is the max zone price across its products:
		// a mixed box never undercharges the run that carries its heaviest
		// item. Reconciliation downstream is per recipient, not per product.
		var price int64
		for _, it := range rec.Items {
			if it.Quantity == 0 {
				continue
			}
			p, err := lookup(it.ProductID)
			if err != nil {
				return nil, err
			}
			entry, ok := p.ZoneEntry(rec.Zone)
			if !ok || !entry.Deliverable {
				return nil, &UndeliverableZoneError{
					RecipientID: rec.ID,
					ProductID:   it.ProductID,
					Zone:        rec.Zone,
				}
			}
			if entry.Price > price {
				price = entry.Price
			}
		}
		moms := money.CalculateVAT(price, deliveryMomsRate)
		deliveryCost += price
		deliveryMoms += moms
		po.Delivery = append(po.Delivery, DeliveryLine{
			RecipientID: rec.ID,
			Zone:        rec.Zone,
			Price:       price,
			Moms:        moms,
		})
	}

	st := &Statement{
		FoodCost:     foodCost,
		DeliveryCost: deliveryCost,
		FoodMoms:     foodMoms,
		DeliveryMoms: deliveryMoms,
	}

	now := time.Now()
	for _, code := range rebateCodes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		rc, err := rebates.Code(ctx, code)
		if errors.Is(err, ErrRebateNotFound) {
			po.IgnoredRebates = append(po.IgnoredRebates, code)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !rc.Usable(now) {
			po.IgnoredRebates = append(po.IgnoredRebates, code)
			continue
		}
		applyRebate(rc, st, po, foodCostAtCost, foodMomsAtCost)
	}

	st.Total = st.FoodCost + st.DeliveryCost
	st.TotalMoms = st.FoodMoms + st.DeliveryMoms
	po.BottomLine = *st
	return po, nil
}

func applyRebate(rc RebateCode, st *Statement, po *PricedOrder, costFood, costMoms int64) {
	switch rc.Type {
	case RebatePercent:
		st.FoodCost -= roundedPercent(st.FoodCost, rc.Amount)
		st.FoodMoms -= roundedPercent(st.FoodMoms, rc.Amount)
	case RebateFreeZone3:
		for i := range po.Delivery {
			if po.Delivery[i].Zone != 3 {
				continue
			}
			st.DeliveryCost -= po.Delivery[i].Price
			st.DeliveryMoms -= po.Delivery[i].Moms
			po.Delivery[i].Price = 0
			po.Delivery[i].Moms = 0
		}
	case RebateCostPrice:
		st.FoodCost = costFood
		st.FoodMoms = costMoms
	}
}

// roundedPercent is pct% of v, rounded half-up.
func roundedPercent(v, pct int64) int64 {
	return (2*v*pct + 100) / 200
}
