package orders

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawOrder is the untrusted checkout payload as decoded at the boundary.
// BuildOrder turns it into an Order or a ValidationError listing every
// failing field.
type RawOrder struct {
	CheckoutID string         `json:"checkoutId"`
	Items      []BasketLine   `json:"items"`
	Details    RawDetails     `json:"details"`
	Delivery   RawDelivery    `json:"delivery"`
	Recipients []RawRecipient `json:"recipients"`
	Payment    RawPayment     `json:"payment"`
	Rebates    []string       `json:"rebateCodes"`
}

type RawDetails struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
}

type RawDelivery struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

type RawRecipient struct {
	ID        string       `json:"id"`
	Zone      *int         `json:"zone"`
	Name      string       `json:"name"`
	Telephone string       `json:"telephone"`
	Address   string       `json:"address"`
	Notes     string       `json:"notes"`
	SMS       string       `json:"sms"`
	Items     []BasketLine `json:"items"`
	// AddressConfirmed asserts the client-side address matched the geocoder
	// suggestion; an unconfirmed address forces the user to re-confirm
	// instead of us silently accepting something undeliverable.
	AddressConfirmed bool `json:"addressConfirmed"`
}

type RawPayment struct {
	Method     string `json:"method"`
	PayerAlias string `json:"payerAlias"`
}

var (
	// Letters (incl. å/ä/ö and friends), spaces, hyphens, apostrophes.
	nameRe  = regexp.MustCompile(`^[\p{L}][\p{L} .'\-]{0,99}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,19}$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// BuildOrder validates a raw checkout payload and assembles the aggregate.
// Item names and the cost statement are filled in afterwards from the priced
// result; this step decides only whether the order is acceptable at all.
func BuildOrder(raw RawOrder) (*Order, error) {
	verr := &ValidationError{}

	if raw.CheckoutID == "" {
		verr.add("checkoutId", "required")
	}
	if len(raw.Items) == 0 {
		verr.add("items", "at least one item required")
	}
	for i, it := range raw.Items {
		if it.ProductID == "" {
			verr.add(fmt.Sprintf("items[%d].productId", i), "required")
		}
		if it.Quantity < 0 {
			verr.add(fmt.Sprintf("items[%d].quantity", i), "must not be negative")
		}
	}

	if !nameRe.MatchString(raw.Details.Name) {
		verr.add("details.name", "required, letters/spaces/hyphens only")
	}
	if !phoneRe.MatchString(raw.Details.Telephone) {
		verr.add("details.telephone", "not a valid telephone number")
	}
	if !emailRe.MatchString(raw.Details.Email) {
		verr.add("details.email", "not a valid email address")
	}

	date, err := ParseDeliveryDate(raw.Delivery.Date)
	if err != nil {
		verr.add("delivery.date", "expected year-week-weekday code")
	}

	dtype := DeliveryType(raw.Delivery.Type)
	switch dtype {
	case TypeCollection:
		if len(raw.Recipients) != 0 {
			verr.add("recipients", "collection orders take no recipients")
		}
	case TypeDelivery:
		if len(raw.Recipients) != 1 {
			verr.add("recipients", "delivery orders take exactly one recipient")
		}
	case TypeSplitDelivery:
		if len(raw.Recipients) == 0 {
			verr.add("recipients", "split-delivery orders need at least one recipient")
		}
	default:
		verr.add("delivery.type", "unknown delivery type")
	}

	for i, rec := range raw.Recipients {
		prefix := fmt.Sprintf("recipients[%d]", i)
		if !nameRe.MatchString(rec.Name) {
			verr.add(prefix+".name", "required, letters/spaces/hyphens only")
		}
		if !phoneRe.MatchString(rec.Telephone) {
			verr.add(prefix+".telephone", "not a valid telephone number")
		}
		if strings.TrimSpace(rec.Address) == "" {
			verr.add(prefix+".address", "required")
		}
		if !rec.AddressConfirmed {
			verr.add(prefix+".addressConfirmed", "address must be confirmed against the suggested one")
		}
		if rec.Zone == nil {
			verr.add(prefix+".zone", "required")
		} else if *rec.Zone < 0 || *rec.Zone > 3 {
			verr.add(prefix+".zone", "must be 0..3")
		}
		for j, it := range rec.Items {
			if it.ProductID == "" {
				verr.add(fmt.Sprintf("%s.items[%d].productId", prefix, j), "required")
			}
			if it.Quantity < 0 {
				verr.add(fmt.Sprintf("%s.items[%d].quantity", prefix, j), "must not be negative")
			}
		}
	}

	if dtype != TypeCollection && len(raw.Recipients) > 0 {
		checkPartition(raw, verr)
	}

	switch PaymentMethod(raw.Payment.Method) {
	case MethodInvoice:
	case MethodSwish:
		if strings.TrimSpace(raw.Payment.PayerAlias) == "" {
			verr.add("payment.payerAlias", "required for Swish payments")
		}
	default:
		verr.add("payment.method", "unknown payment method")
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	o := &Order{
		ID:         uuid.NewString(),
		CheckoutID: raw.CheckoutID,
		Details: Details{
			Name:      strings.TrimSpace(raw.Details.Name),
			Email:     strings.TrimSpace(raw.Details.Email),
			Telephone: strings.TrimSpace(raw.Details.Telephone),
		},
		Delivery: Delivery{Date: date, Type: dtype},
		Payment: Payment{
			Method: PaymentMethod(raw.Payment.Method),
			Status: StatusOrdered,
		},
		CreatedAt: time.Now().UTC(),
	}
	for _, it := range raw.Items {
		o.Items = append(o.Items, Item{ID: it.ProductID, Quantity: it.Quantity})
	}
	for _, rec := range raw.Recipients {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		r := Recipient{
			ID:        id,
			Zone:      *rec.Zone,
			Name:      strings.TrimSpace(rec.Name),
			Telephone: strings.TrimSpace(rec.Telephone),
			Delivery: RecipientDelivery{
				Address: strings.TrimSpace(rec.Address),
				Notes:   strings.TrimSpace(rec.Notes),
				SMS:     strings.TrimSpace(rec.SMS),
			},
		}
		for _, it := range rec.Items {
			r.Items = append(r.Items, RecipientItem{ID: it.ProductID, Quantity: it.Quantity})
		}
		o.Recipients = append(o.Recipients, r)
	}
	return o, nil
}

// checkPartition verifies that recipient sub-baskets sum exactly to the
// order's basket, per product.
func checkPartition(raw RawOrder, verr *ValidationError) {
	want := map[string]int64{}
	for _, it := range raw.Items {
		want[it.ProductID] += it.Quantity
	}
	got := map[string]int64{}
	for _, rec := range raw.Recipients {
		for _, it := range rec.Items {
			got[it.ProductID] += it.Quantity
		}
	}
	for id, q := range want {
		if got[id] != q {
			verr.add("recipients", fmt.Sprintf("quantities for product %s do not add up (%d of %d assigned)", id, got[id], q))
		}
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			verr.add("recipients", fmt.Sprintf("product %s not in the order basket", id))
		}
	}
}
