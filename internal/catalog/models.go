package catalog

import (
	"time"

	"github.com/godishuset/box-orders/internal/money"
)

// Zones 0..3, nearest to farthest. Every product carries its own price and
// eligibility per zone since heavy boxes cost more to drive out than light ones.
const ZoneCount = 4

type ZonePrice struct {
	Zone        int   `json:"zone"`
	Deliverable bool  `json:"deliverable"`
	Price       int64 `json:"price"` // öre
}

type Product struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	GrossPrice int64                `json:"grossPrice"` // öre, VAT inclusive
	MomsRate   int64                `json:"momsRate"`   // whole percent, e.g. 12
	MomsAmount int64                `json:"momsAmount"` // VAT portion of GrossPrice
	NetPrice   int64                `json:"netPrice"`
	CostPrice  int64                `json:"costPrice"` // internal, never shown to customers
	Delivery   [ZoneCount]ZonePrice `json:"delivery"`
	CreatedAt  time.Time            `json:"-"`
	UpdatedAt  time.Time            `json:"-"`
}

// Normalize recomputes the derived price fields from GrossPrice and MomsRate
// and stamps zone numbers onto the delivery table. Called before persisting.
func (p *Product) Normalize() {
	p.NetPrice = money.CalculateNet(p.GrossPrice, p.MomsRate)
	p.MomsAmount = p.GrossPrice - p.NetPrice
	for i := range p.Delivery {
		p.Delivery[i].Zone = i
	}
}

// ZoneEntry returns the delivery table entry for a zone, or false when the
// zone is outside the 0..3 range.
func (p *Product) ZoneEntry(zone int) (ZonePrice, bool) {
	if zone < 0 || zone >= ZoneCount {
		return ZonePrice{}, false
	}
	return p.Delivery[zone], true
}
