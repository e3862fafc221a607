package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openagora/agora/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestTimeAllows(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	wedAfternoon := time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)
	wedNight := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)
	wedDawn := time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC)

	t.Run("nil restrictions always apply", func(t *testing.T) {
		assert.True(t, timeAllows(nil, wedAfternoon))
	})

	t.Run("validity window", func(t *testing.T) {
		past := wedAfternoon.Add(-time.Hour)
		future := wedAfternoon.Add(time.Hour)

		assert.True(t, timeAllows(&models.TimeRestrictions{ValidFrom: &past, ValidUntil: &future}, wedAfternoon))
		assert.False(t, timeAllows(&models.TimeRestrictions{ValidFrom: &future}, wedAfternoon))
		assert.False(t, timeAllows(&models.TimeRestrictions{ValidUntil: &past}, wedAfternoon))
	})

	t.Run("days of week", func(t *testing.T) {
		weekdays := &models.TimeRestrictions{DaysOfWeek: []int{1, 2, 3, 4, 5}}
		weekend := &models.TimeRestrictions{DaysOfWeek: []int{0, 6}}

		assert.True(t, timeAllows(weekdays, wedAfternoon))
		assert.False(t, timeAllows(weekend, wedAfternoon))
	})

	t.Run("business hours", func(t *testing.T) {
		hours := &models.TimeRestrictions{StartHour: intPtr(9), EndHour: intPtr(17)}

		assert.True(t, timeAllows(hours, wedAfternoon))
		assert.False(t, timeAllows(hours, wedNight))
		assert.False(t, timeAllows(hours, wedDawn))
	})

	t.Run("overnight window", func(t *testing.T) {
		night := &models.TimeRestrictions{StartHour: intPtr(22), EndHour: intPtr(6)}

		assert.True(t, timeAllows(night, wedNight))
		assert.True(t, timeAllows(night, wedDawn))
		assert.False(t, timeAllows(night, wedAfternoon))
	})

	t.Run("timezone", func(t *testing.T) {
		utcHours := &models.TimeRestrictions{
			StartHour: intPtr(9),
			EndHour:   intPtr(17),
			Timezone:  "UTC",
		}
		assert.True(t, timeAllows(utcHours, wedAfternoon))

		broken := &models.TimeRestrictions{Timezone: "Mars/Olympus_Mons"}
		assert.False(t, timeAllows(broken, wedAfternoon))
	})
}

func TestIPAllows(t *testing.T) {
	t.Run("no restrictions", func(t *testing.T) {
		assert.True(t, ipAllows(nil, "203.0.113.5"))
		assert.True(t, ipAllows(&models.IPRestrictions{}, ""))
	})

	t.Run("block list", func(t *testing.T) {
		ir := &models.IPRestrictions{Blocked: []string{"203.0.113.0/24"}}

		assert.False(t, ipAllows(ir, "203.0.113.5"))
		assert.True(t, ipAllows(ir, "198.51.100.1"))
	})

	t.Run("allow list requires a match", func(t *testing.T) {
		ir := &models.IPRestrictions{Allowed: []string{"10.0.0.0/8", "192.168.1.1"}}

		assert.True(t, ipAllows(ir, "10.4.5.6"))
		assert.True(t, ipAllows(ir, "192.168.1.1"))
		assert.False(t, ipAllows(ir, "192.168.1.2"))
		assert.False(t, ipAllows(ir, "8.8.8.8"))
	})

	t.Run("block wins over allow", func(t *testing.T) {
		ir := &models.IPRestrictions{
			Allowed: []string{"10.0.0.0/8"},
			Blocked: []string{"10.66.0.0/16"},
		}

		assert.True(t, ipAllows(ir, "10.1.1.1"))
		assert.False(t, ipAllows(ir, "10.66.1.1"))
	})

	t.Run("missing or invalid client address fails closed", func(t *testing.T) {
		ir := &models.IPRestrictions{Allowed: []string{"10.0.0.0/8"}}

		assert.False(t, ipAllows(ir, ""))
		assert.False(t, ipAllows(ir, "not-an-ip"))
	})

	t.Run("malformed entries never match", func(t *testing.T) {
		assert.False(t, ipAllows(&models.IPRestrictions{Allowed: []string{"bogus"}}, "10.0.0.1"))
		assert.True(t, ipAllows(&models.IPRestrictions{Blocked: []string{"bogus"}}, "10.0.0.1"))
	})
}
