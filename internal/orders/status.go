package orders

import "errors"

var ErrBadTransition = errors.New("illegal payment status transition")

type Status string

const (
	StatusOrdered   Status = "Ordered"
	StatusInvoiced  Status = "Invoiced"
	StatusPaid      Status = "Paid"
	StatusCancelled Status = "Cancelled"
)

// Cancellation stays open from every live state so a refund or no-show can be
// reflected after the fact. Cancelled is terminal.
var validNext = map[Status]map[Status]bool{
	StatusOrdered:   {StatusInvoiced: true, StatusPaid: true, StatusCancelled: true},
	StatusInvoiced:  {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusCancelled: true},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
