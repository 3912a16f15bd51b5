package number

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestRoundHalfUp(t *testing.T) {
	data := map[string]string{
		"0.125": "0.13",
		"0.124": "0.12",
		"0.115": "0.12",
	}

	for k, v := range data {
		t.Run(k, func(t *testing.T) {
			assert.Equal(t, v, RoundHalfUp(Decimal(k), 2).String())
		})
	}
}

func TestZeroFloor(t *testing.T) {
	assert.Equal(t, "0", ZeroFloor(Decimal("-0.00000001")).String())
	assert.Equal(t, "1.5", ZeroFloor(Decimal("1.5")).String())
}
