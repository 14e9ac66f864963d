package feeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookbackDuration(t *testing.T) {
	monday := time.Date(2026, time.August, 3, 9, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, time.August, 4, 9, 0, 0, 0, time.UTC)

	t.Run("widens by the configured factor on Monday", func(t *testing.T) {
		d := Deps{LookbackHours: 24, MondayWideningFactor: 3, Now: monday}
		assert.Equal(t, 72*time.Hour, lookbackDuration(d))
	})

	t.Run("leaves other weekdays unwidened", func(t *testing.T) {
		d := Deps{LookbackHours: 24, MondayWideningFactor: 3, Now: tuesday}
		assert.Equal(t, 24*time.Hour, lookbackDuration(d))
	})

	t.Run("defaults an unset widening factor to 1 even on Monday", func(t *testing.T) {
		d := Deps{LookbackHours: 10, MondayWideningFactor: 0, Now: monday}
		assert.Equal(t, 10*time.Hour, lookbackDuration(d))
	})
}
