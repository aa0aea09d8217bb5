package engine

import "fmt"

// Seat describes a single bookable seat inside a show's seat map.
//
// Fields:
//
//	ID    – stable identifier, unique within the show (e.g. "A1").
//	Type  – seat-type tag used for pricing (e.g. STANDARD, VIP).
//	Label – human-readable position printed on the ticket (e.g. "Row A Seat 1").
type Seat struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// SeatMap is the immutable seat layout of a show. It is validated once
// at construction and never mutated afterwards, so it is safe to share
// between concurrent readers without locking.
type SeatMap struct {
	seats []Seat
	index map[string]int
}

// NewSeatMap validates the given seats and builds a SeatMap. It returns
// ErrInvalidSeatMap when the slice is empty, when a seat has an empty
// identifier or when two seats share an identifier.
func NewSeatMap(seats []Seat) (*SeatMap, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: no seats", ErrInvalidSeatMap)
	}
	m := &SeatMap{
		seats: make([]Seat, len(seats)),
		index: make(map[string]int, len(seats)),
	}
	copy(m.seats, seats)
	for i, s := range m.seats {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: empty seat id at position %d", ErrInvalidSeatMap, i)
		}
		if _, dup := m.index[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate seat id %q", ErrInvalidSeatMap, s.ID)
		}
		m.index[s.ID] = i
	}
	return m, nil
}

// Get returns the seat with the given identifier and whether it exists.
func (m *SeatMap) Get(id string) (Seat, bool) {
	i, ok := m.index[id]
	if !ok {
		return Seat{}, false
	}
	return m.seats[i], true
}

// Size returns the total number of seats in the map.
func (m *SeatMap) Size() int { return len(m.seats) }

// Seats returns a copy of all seats in their original order. Callers
// may modify the returned slice freely.
func (m *SeatMap) Seats() []Seat {
	out := make([]Seat, len(m.seats))
	copy(out, m.seats)
	return out
}
