package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name    string
		values  []Value
		want    float64
		defined bool
	}{
		{name: "empty", values: nil},
		{name: "all undefined", values: []Value{Undefined, Undefined}},
		{name: "single", values: []Value{Of(2.5)}, want: 2.5, defined: true},
		{name: "one undefined", values: []Value{Of(2.5), Undefined}, want: 2.5, defined: true},
		{name: "undefined first", values: []Value{Undefined, Of(1.75)}, want: 1.75, defined: true},
		{name: "pair", values: []Value{Of(1), Of(2)}, want: 1.5, defined: true},
		{name: "zeros are values", values: []Value{Of(0), Of(0), Undefined}, want: 0, defined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mean(tt.values)
			assert.Equal(t, tt.defined, got.Defined())
			if tt.defined {
				x, _ := got.Float()
				assert.Equal(t, tt.want, x)
			}
		})
	}
}
