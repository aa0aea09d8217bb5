package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeatMapValidation(t *testing.T) {
	tests := []struct {
		name    string
		seats   []Seat
		wantErr bool
	}{
		{"valid", []Seat{{ID: "A1", Type: "STANDARD"}, {ID: "A2", Type: "VIP"}}, false},
		{"empty", nil, true},
		{"empty seat id", []Seat{{ID: "", Type: "STANDARD"}}, true},
		{"duplicate ids", []Seat{{ID: "A1"}, {ID: "A1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeatMap(tt.seats)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSeatMap)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeatMapLookup(t *testing.T) {
	m, err := NewSeatMap([]Seat{
		{ID: "A1", Type: "STANDARD", Label: "Row A Seat 1"},
		{ID: "B1", Type: "VIP", Label: "Row B Seat 1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, m.Size())

	seat, ok := m.Get("B1")
	require.True(t, ok)
	assert.Equal(t, "VIP", seat.Type)
	assert.Equal(t, "Row B Seat 1", seat.Label)

	_, ok = m.Get("Z9")
	assert.False(t, ok)
}

func TestSeatMapSeatsReturnsCopy(t *testing.T) {
	m, err := NewSeatMap([]Seat{{ID: "A1", Type: "STANDARD"}})
	require.NoError(t, err)

	seats := m.Seats()
	seats[0].Type = "VIP"

	seat, _ := m.Get("A1")
	assert.Equal(t, "STANDARD", seat.Type)
}
