package orders

import (
	"encoding/json"
	"fmt"
)

// DeliveryDate is the composite year-week-weekday key used to plan production
// and delivery runs. Internally it is three integers; the "YYYY-WW-D" string
// form exists only at the persistence and reporting boundary.
type DeliveryDate struct {
	Year    int
	Week    int // ISO week, 1..53
	Weekday int // 1=Monday .. 7=Sunday
}

func ParseDeliveryDate(s string) (DeliveryDate, error) {
	var d DeliveryDate
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &d.Year, &d.Week, &d.Weekday); err != nil {
		return DeliveryDate{}, fmt.Errorf("bad delivery date %q: %w", s, err)
	}
	if err := d.Validate(); err != nil {
		return DeliveryDate{}, err
	}
	return d, nil
}

func (d DeliveryDate) Validate() error {
	if d.Year < 2000 || d.Year > 2200 {
		return fmt.Errorf("bad delivery year %d", d.Year)
	}
	if d.Week < 1 || d.Week > 53 {
		return fmt.Errorf("bad delivery week %d", d.Week)
	}
	if d.Weekday < 1 || d.Weekday > 7 {
		return fmt.Errorf("bad delivery weekday %d", d.Weekday)
	}
	return nil
}

func (d DeliveryDate) String() string {
	return fmt.Sprintf("%04d-%02d-%d", d.Year, d.Week, d.Weekday)
}

func (d DeliveryDate) IsZero() bool { return d == DeliveryDate{} }

// WeekPrefix is the "YYYY-WW" form used for range filters over a whole week.
func (d DeliveryDate) WeekPrefix() string {
	return fmt.Sprintf("%04d-%02d", d.Year, d.Week)
}

func (d DeliveryDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DeliveryDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDeliveryDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
