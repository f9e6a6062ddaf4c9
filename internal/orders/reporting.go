package orders

import "sort"

// Sentinel sequence keys. Abnormal rows get pushed to the front of the
// printed delivery list, out of the normal driving route, for manual
// handling: cancelled orders first, collections next.
const (
	seqCancelled  = int64(-2_000_000)
	seqCollection = int64(-1_000_000)
)

// RecipientRow is one line of the flattened delivery-run view: one row per
// recipient, plus one synthetic purchaser row per collection order.
type RecipientRow struct {
	OrderID      string       `json:"orderId"`
	RecipientID  string       `json:"recipientId,omitempty"`
	Name         string       `json:"name"`
	Telephone    string       `json:"telephone"`
	Address      string       `json:"address,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Zone         int          `json:"zone"`
	DeliveryDate DeliveryDate `json:"deliveryDate"`
	Type         DeliveryType `json:"type"`
	SMS          string       `json:"sms,omitempty"`
	Cancelled    bool         `json:"cancelled"`
	SequenceKey  int64        `json:"sequenceKey"`
}

// RecipientRows flattens orders into delivery-run rows sorted by sequence
// key, then delivery date.
func RecipientRows(os []Order) []RecipientRow {
	var rows []RecipientRow
	for _, o := range os {
		cancelled := o.Payment.Status == StatusCancelled
		if o.Delivery.Type == TypeCollection {
			key := seqCollection
			if cancelled {
				key = seqCancelled
			}
			rows = append(rows, RecipientRow{
				OrderID:      o.ID,
				Name:         o.Details.Name,
				Telephone:    o.Details.Telephone,
				DeliveryDate: o.Delivery.Date,
				Type:         TypeCollection,
				Cancelled:    cancelled,
				SequenceKey:  key,
			})
			continue
		}
		for _, rec := range o.Recipients {
			key := rec.Delivery.Order
			if cancelled {
				key = seqCancelled
			}
			rows = append(rows, RecipientRow{
				OrderID:      o.ID,
				RecipientID:  rec.ID,
				Name:         rec.Name,
				Telephone:    rec.Telephone,
				Address:      rec.Delivery.Address,
				Notes:        rec.Delivery.Notes,
				Zone:         rec.Zone,
				DeliveryDate: o.Delivery.Date,
				Type:         o.Delivery.Type,
				SMS:          rec.Delivery.SMS,
				Cancelled:    cancelled,
				SequenceKey:  key,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SequenceKey != rows[j].SequenceKey {
			return rows[i].SequenceKey < rows[j].SequenceKey
		}
		return rows[i].DeliveryDate.String() < rows[j].DeliveryDate.String()
	})
	return rows
}

// ProductTotal is the per-day, per-product production quantity.
type ProductTotal struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// DayTotal aggregates one delivery date: what to prepare, how many runs and
// pickups, and the day's income.
type DayTotal struct {
	Date        DeliveryDate   `json:"date"`
	Products    []ProductTotal `json:"products"`
	Income      int64          `json:"income"`
	Deliveries  int            `json:"deliveries"`
	Collections int            `json:"collections"`
}

// WeeklyTotals folds orders into per-day production totals. Cancelled orders
// are excluded. Income and delivery/collection counts are order-level facts
// attached only once per order (conceptually to its first product line), then
// regrouped per date; quantity is summed per product line. A single-stage
// group would double count income once per product line.
func WeeklyTotals(os []Order) []DayTotal {
	type dayAgg struct {
		products    map[string]int64
		names       []string
		income      int64
		deliveries  int
		collections int
	}
	days := map[string]*dayAgg{}
	var dates []DeliveryDate

	for _, o := range os {
		if o.Payment.Status == StatusCancelled {
			continue
		}
		key := o.Delivery.Date.String()
		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{products: map[string]int64{}}
			days[key] = agg
			dates = append(dates, o.Delivery.Date)
		}
		for _, it := range o.Items {
			if _, seen := agg.products[it.Name]; !seen {
				agg.names = append(agg.names, it.Name)
			}
			agg.products[it.Name] += it.Quantity
		}
		// order-level facts, attached exactly once per order
		agg.income += o.Cost.Total
		if o.Delivery.Type == TypeCollection {
			agg.collections++
		} else {
			agg.deliveries += len(o.Recipients)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].String() < dates[j].String() })

	out := make([]DayTotal, 0, len(dates))
	for _, d := range dates {
		agg := days[d.String()]
		sort.Strings(agg.names)
		dt := DayTotal{
			Date:        d,
			Income:      agg.income,
			Deliveries:  agg.deliveries,
			Collections: agg.collections,
		}
		for _, name := range agg.names {
			dt.Products = append(dt.Products, ProductTotal{Name: name, Quantity: agg.products[name]})
		}
		out = append(out, dt)
	}
	return out
}

// HighestDeliverySequence scans non-collection orders for the largest
// assigned run sequence. Zero when none exist.
func HighestDeliverySequence(os []Order) int64 {
	var max int64
	for _, o := range os {
		if o.Delivery.Type == TypeCollection {
			continue
		}
		for _, rec := range o.Recipients {
			if rec.Delivery.Order > max {
				max = rec.Delivery.Order
			}
		}
	}
	return max
}
