package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    Quantity
		wantErr bool
	}{
		{in: "12.5", want: 125000},
		{in: "0.0001", want: 1},
		{in: "-3.25", want: -32500},
		{in: "+7", want: 70000},
		{in: ".5", want: 5000},
		{in: "1.23456789", want: 12345},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.2x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantity_String(t *testing.T) {
	assert.Equal(t, "12.5000", NewQuantityFromFloat64(12.5).String())
	assert.Equal(t, "-0.2500", NewQuantityFromFloat64(-0.25).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}

func TestQuantity_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Qty Quantity `json:"qty"`
	}

	data, err := json.Marshal(payload{Qty: NewQuantityFromFloat64(9.75)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"qty":9.7500}`, string(data))

	var fromNumber payload
	require.NoError(t, json.Unmarshal([]byte(`{"qty":9.75}`), &fromNumber))
	assert.Equal(t, NewQuantityFromFloat64(9.75), fromNumber.Qty)

	var fromString payload
	require.NoError(t, json.Unmarshal([]byte(`{"qty":"9.75"}`), &fromString))
	assert.Equal(t, NewQuantityFromFloat64(9.75), fromString.Qty)
}

func TestQuantity_DecimalMath(t *testing.T) {
	price := NewMoney(20)
	qty := NewQuantityFromFloat64(2.5)
	assert.True(t, price.Mul(qty.Decimal()).Equal(NewMoney(50)))
}

func TestQuantity_SignHelpers(t *testing.T) {
	q := NewQuantityFromFloat64(3)
	assert.True(t, q.IsPositive())
	assert.True(t, q.Neg().IsNegative())
	assert.Equal(t, q, q.Neg().Abs())
	assert.True(t, Quantity(0).IsZero())
}
