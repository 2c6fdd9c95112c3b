// AngelaMos | 2026
// gate_test.go

package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

func TestResolveViewMatrix(t *testing.T) {
	for _, required := range tier.All() {
		for _, viewer := range tier.All() {
			item := &Item{Body: "lore", RequiredTier: required}
			d := ResolveView(item, viewer)

			if viewer.Ordinal() >= required.Ordinal() {
				assert.Equal(t, OutcomeFull, d.Outcome, "%s viewing %s", viewer, required)
				assert.Equal(t, "lore", d.Body)
				assert.Empty(t, d.Reason)
			} else {
				assert.Equal(t, OutcomeDenied, d.Outcome, "%s viewing %s", viewer, required)
				assert.Empty(t, d.Body)
				assert.Equal(t, ReasonInsufficientTier, d.Reason)
			}
			assert.Equal(t, required, d.Required)
			assert.Equal(t, viewer, d.Viewer)
		}
	}
}

func TestResolveViewLeavesItemUntouched(t *testing.T) {
	item := &Item{Body: "secret", RequiredTier: tier.Premium, ViewCount: 7}
	before := *item

	ResolveView(item, tier.Start)
	ResolveView(item, tier.Premium)

	assert.Equal(t, before, *item)
}
