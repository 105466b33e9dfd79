package interest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/trellis/pkg/models"
)

func TestDecide(t *testing.T) {
	created := time.Now()

	tests := []struct {
		name      string
		plan      *models.PricingPlan
		status    models.RequestStatus
		connected bool
	}{
		{
			name:      "no plan records an attempt",
			plan:      nil,
			status:    models.RequestStatusInterestTried,
			connected: false,
		},
		{
			name:      "free plan records an attempt",
			plan:      &models.PricingPlan{PlanName: "Free", CreatedAt: created},
			status:    models.RequestStatusInterestTried,
			connected: false,
		},
		{
			name:      "free plan case insensitive",
			plan:      &models.PricingPlan{PlanName: "  FREE "},
			status:    models.RequestStatusInterestTried,
			connected: false,
		},
		{
			name:      "paid plan connects",
			plan:      &models.PricingPlan{PlanName: "Gold", CreatedAt: created},
			status:    models.RequestStatusInterest,
			connected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.plan)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.connected, got.Connected)
		})
	}
}

func TestAppendInterested(t *testing.T) {
	t.Run("normalizes before appending", func(t *testing.T) {
		got, changed := AppendInterested(nil, "+91 98765 43210")
		assert.True(t, changed)
		assert.Equal(t, []string{"9876543210"}, got)
	})

	t.Run("duplicate key is a no-op", func(t *testing.T) {
		existing := []string{"9876543210"}
		got, changed := AppendInterested(existing, "09876543210")
		assert.False(t, changed)
		assert.Equal(t, existing, got)
	})

	t.Run("empty phone is a no-op", func(t *testing.T) {
		existing := []string{"9876543210"}
		got, changed := AppendInterested(existing, "")
		assert.False(t, changed)
		assert.Equal(t, existing, got)

		got, changed = AppendInterested(existing, "call me")
		assert.False(t, changed)
		assert.Equal(t, existing, got)
	})

	t.Run("keeps first-seen order", func(t *testing.T) {
		got, changed := AppendInterested([]string{"1111111111"}, "2222222222")
		assert.True(t, changed)
		assert.Equal(t, []string{"1111111111", "2222222222"}, got)
	})
}
