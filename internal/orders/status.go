package orders

import "slices"

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPlaced:    {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// PriorStatuses lists the statuses an order may move to `to` from, sorted.
func PriorStatuses(to Status) []Status {
	var out []Status
	for from, next := range validNext {
		if next[to] {
			out = append(out, from)
		}
	}
	slices.Sort(out)
	return out
}
