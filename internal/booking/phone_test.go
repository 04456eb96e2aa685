package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		valid bool
	}{
		{"+998 90 123 45 67", "+998901234567", true},
		{"998901234567", "+998901234567", true},
		{"901234567", "+998901234567", true},
		{"(90) 123-45-67", "+998901234567", true},
		{"+99890123456", "+99890123456", false},
		{"+7 912 345 67 89", "+79123456789", false},
		{"+998abc1234567", "+9981234567", false},
		{"abc", "+998", false},
		{"", "+998", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizePhone(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once, ok := NormalizePhone("90-123-45-67")
	assert.True(t, ok)
	twice, ok := NormalizePhone(once)
	assert.True(t, ok)
	assert.Equal(t, once, twice)
}
