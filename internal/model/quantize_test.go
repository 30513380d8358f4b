package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Precision
		wantErr bool
	}{
		{"INT8", PrecisionINT8, false},
		{"int8", PrecisionINT8, false},
		{"Fp16", PrecisionFP16, false},
		{"fp32", PrecisionFP32, false},
		{"int4", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrecision(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPrecision)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldQuantize(t *testing.T) {
	tests := []struct {
		name string
		kind LayerKind
		want bool
	}{
		{"fc1", KindLinear, true},
		{"classifier", KindLinear, true},
		{"relu1", KindReLU, false},
		{"flatten", KindFlatten, false},
		{"layernorm1", KindLinear, false},
		{"ln_final", KindLinear, false},
		{"embedding", KindLinear, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldQuantize(tt.name, tt.kind))
		})
	}
}

func TestQuantizableLayers(t *testing.T) {
	m := validModel()
	assert.Equal(t, []string{"fc1", "fc2"}, m.QuantizableLayers())
}
