package buildplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDualPlans(t *testing.T) {
	legacy, modern := Legacy(), Modern()

	assert.True(t, legacy.CleanOutput)
	assert.True(t, legacy.KeepAlive)
	assert.True(t, legacy.LegacyBundle())
	assert.Equal(t, "legacy", legacy.PassName())

	assert.False(t, modern.CleanOutput)
	assert.False(t, modern.LegacyBundle())
	assert.Equal(t, "modern", modern.PassName())
}

func TestSinglePlan(t *testing.T) {
	p := Single("", true)
	assert.True(t, p.IsAppTarget())
	assert.False(t, p.LegacyBundle())
	assert.Equal(t, "single", p.PassName())
	assert.False(t, Single("lib", false).IsAppTarget())
}
