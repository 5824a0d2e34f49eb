package market_hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jst(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, Tokyo)
}

func TestGetMarketStatus(t *testing.T) {
	service := NewMarketHoursService()

	tests := []struct {
		name      string
		at        time.Time
		open      bool
		phase     string
		closesAt  string
		opensAt   string
		opensDate string
		reason    string
	}{
		{"morning session", jst(2024, 3, 11, 10, 0), true, PhaseOpen, "11:30", "", "", ""},
		{"afternoon session", jst(2024, 3, 11, 14, 46), true, PhaseOpen, "15:00", "", "", ""},
		{"lunch break", jst(2024, 3, 11, 12, 0), false, PhaseLunchBreak, "", "12:30", "2024-03-11", "lunch break"},
		{"before open", jst(2024, 3, 11, 8, 59), false, PhaseClosed, "", "09:00", "2024-03-11", "before open"},
		{"after close", jst(2024, 3, 11, 15, 0), false, PhaseClosed, "", "09:00", "2024-03-12", "after close"},
		{"extended close", jst(2024, 11, 6, 15, 15), true, PhaseOpen, "15:30", "", "", ""},
		{"weekend", jst(2024, 3, 16, 10, 0), false, PhaseClosed, "", "09:00", "2024-03-18", "weekend"},
		{"holiday", jst(2024, 3, 20, 10, 0), false, PhaseClosed, "", "09:00", "2024-03-21", "Vernal Equinox Day"},
		{"year end", jst(2024, 12, 31, 10, 0), false, PhaseClosed, "", "09:00", "2025-01-06", "Exchange year-end holiday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := service.GetMarketStatus(tt.at)
			assert.Equal(t, ExchangeCode, status.Exchange)
			assert.Equal(t, tt.open, status.Open)
			assert.Equal(t, tt.phase, status.Phase)
			assert.Equal(t, tt.closesAt, status.ClosesAt)
			assert.Equal(t, tt.opensAt, status.OpensAt)
			assert.Equal(t, tt.opensDate, status.OpensDate)
			assert.Equal(t, tt.reason, status.Reason)
		})
	}
}

func TestGetMarketStatus_ConvertsToTokyo(t *testing.T) {
	service := NewMarketHoursService()
	// 05:46 UTC is 14:46 JST
	assert.True(t, service.IsMarketOpen(time.Date(2024, 3, 11, 5, 46, 0, 0, time.UTC)))
}

func TestHolidays(t *testing.T) {
	service := NewMarketHoursService()

	holidays := service.Holidays(2024)
	byDate := make(map[string]string, len(holidays))
	for i, h := range holidays {
		byDate[h.Date] = h.Name
		if i > 0 {
			assert.Less(t, holidays[i-1].Date, h.Date)
		}
	}

	assert.Equal(t, "New Year's Day", byDate["2024-01-01"])
	assert.Equal(t, "Exchange New Year holiday", byDate["2024-01-02"])
	assert.Equal(t, "Coming of Age Day", byDate["2024-01-08"])
	assert.Equal(t, "Substitute Holiday", byDate["2024-02-12"])
	assert.Equal(t, "Vernal Equinox Day", byDate["2024-03-20"])
	assert.Equal(t, "Substitute Holiday", byDate["2024-09-23"])
	assert.Equal(t, "Exchange year-end holiday", byDate["2024-12-31"])
	assert.NotContains(t, byDate, "2024-09-22", "weekend holidays are omitted")
}

func TestHolidays_CitizensHoliday(t *testing.T) {
	service := NewMarketHoursService()

	var found bool
	for _, h := range service.Holidays(2026) {
		if h.Date == "2026-09-22" {
			found = true
			assert.Equal(t, "Citizens' Holiday", h.Name)
		}
	}
	require.True(t, found)
	assert.False(t, service.IsTradingDay(jst(2026, 9, 22, 10, 0)))
}

func TestNextTradingDay(t *testing.T) {
	service := NewMarketHoursService()

	next := service.NextTradingDay(jst(2026, 5, 1, 16, 0))
	assert.Equal(t, "2026-05-07", next.Format("2006-01-02"))
}
