package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceCode(t *testing.T) {
	tests := []struct {
		name   string
		region string
		os     VmOs
		want   string
	}{
		{name: "suse", region: "eu-west-0", os: SUSE, want: "eu-west-0/ri-3y-flexible/p2.2xlarge.8/suse"},
		{name: "lower cased", region: "Paris", os: WINDOWS, want: "paris/ri-3y-flexible/p2.2xlarge.8/windows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceCode(tt.region, "ri-3y-flexible", "p2.2xlarge.8", tt.os)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 44577.72, Round3(1238.27*36))
	assert.Equal(t, 14.4, Round3(0.02*720))
	assert.Equal(t, 0.123, Round3(0.1234))
	assert.Equal(t, 0.124, Round3(0.1235))
}

func TestSameCost(t *testing.T) {
	assert.True(t, SameCost(14.4, 0.02*720))
	assert.True(t, SameCost(1.0, 1.0004))
	assert.False(t, SameCost(1.0, 1.001))
	assert.False(t, SameCost(0, 0.01))
}
