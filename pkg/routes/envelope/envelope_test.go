package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	e := New("created", map[string]any{"id": "abc"})
	assert.Equal(t, "created", e.Message)
	assert.Nil(t, e.Meta)
}

func TestWithMeta(t *testing.T) {
	t.Run("chains multiple keys", func(t *testing.T) {
		e := New("listed", nil).
			WithMeta("scanned", 500).
			WithMeta("total_count", 731)
		assert.Equal(t, 500, e.Meta["scanned"])
		assert.Equal(t, 731, e.Meta["total_count"])
	})

	t.Run("does not mutate the original", func(t *testing.T) {
		base := New("listed", nil)
		_ = base.WithMeta("match_failed", true)
		assert.Nil(t, base.Meta)
	})
}
