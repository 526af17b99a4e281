package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewColumnProfile_Cardinality(t *testing.T) {
	tests := []struct {
		name     string
		nonNull  int64
		distinct int64
		want     Cardinality
	}{
		{"all unique", 1000, 1000, CardinalityUnique},
		{"near unique", 1000, 950, CardinalityNearUnique},
		{"near unique threshold", 1000, 900, CardinalityNearUnique},
		{"high", 1000, 500, CardinalityHigh},
		{"status column", 1000, 5, CardinalityEnumLike},
		{"enum upper bound", 1000, 20, CardinalityEnumLike},
		{"low", 1000, 50, CardinalityLow},
		{"low upper bound", 1000, 200, CardinalityLow},
		{"empty column", 0, 0, CardinalityEnumLike},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewColumnProfile("pat_parts_all", "配件狀態", tt.nonNull, tt.nonNull, tt.distinct)
			assert.Equal(t, tt.want, p.Cardinality)
		})
	}
}

func TestNewColumnProfile_Nulls(t *testing.T) {
	p := NewColumnProfile("pat_parts_all", "維修天數", 200, 150, 30)
	assert.Equal(t, int64(50), p.NullCount)
	assert.InDelta(t, 0.25, p.NullFraction, 1e-9)
	assert.Equal(t, CardinalityLow, p.Cardinality)

	empty := NewColumnProfile("t", "c", 0, 0, 0)
	assert.Zero(t, empty.NullFraction)
}
