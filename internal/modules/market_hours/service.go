// Package market_hours implements the Tokyo Stock Exchange trading calendar.
package market_hours

import (
	"math"
	"sort"
	"time"
)

// ExchangeCode is the MIC of the Tokyo Stock Exchange
const ExchangeCode = "XTKS"

// Tokyo is the exchange time zone
var Tokyo = loadTokyo()

func loadTokyo() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// Session phases
const (
	PhaseOpen       = "open"
	PhaseLunchBreak = "lunch_break"
	PhaseClosed     = "closed"
)

// The afternoon session was extended by 30 minutes from this date
var extendedCloseFrom = time.Date(2024, 11, 5, 0, 0, 0, 0, Tokyo)

// Holiday is a day the exchange does not trade
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// MarketStatus is the exchange state at an instant
type MarketStatus struct {
	Exchange  string `json:"exchange"`
	Open      bool   `json:"open"`
	Phase     string `json:"phase"`
	Timezone  string `json:"timezone"`
	Reason    string `json:"reason,omitempty"`
	ClosesAt  string `json:"closes_at,omitempty"`
	OpensAt   string `json:"opens_at,omitempty"`
	OpensDate string `json:"opens_date,omitempty"`
}

// MarketHoursService answers calendar questions for the exchange
type MarketHoursService struct{}

// NewMarketHoursService creates a new market hours service
func NewMarketHoursService() *MarketHoursService {
	return &MarketHoursService{}
}

func sessionClose(day time.Time) (hour, minute int) {
	if !day.Before(extendedCloseFrom) {
		return 15, 30
	}
	return 15, 0
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, Tokyo)
}

// IsTradingDay reports whether the exchange trades on the Tokyo calendar day containing t
func (s *MarketHoursService) IsTradingDay(t time.Time) bool {
	day := t.In(Tokyo)
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, closed := closures(day.Year())[dateKey(day)]
	return !closed
}

// IsMarketOpen reports whether a trading session is running at t
func (s *MarketHoursService) IsMarketOpen(t time.Time) bool {
	return s.GetMarketStatus(t).Open
}

// GetMarketStatus describes the exchange at t
func (s *MarketHoursService) GetMarketStatus(t time.Time) MarketStatus {
	now := t.In(Tokyo)
	status := MarketStatus{
		Exchange: ExchangeCode,
		Phase:    PhaseClosed,
		Timezone: Tokyo.String(),
	}

	if s.IsTradingDay(now) {
		closeH, closeM := sessionClose(now)
		morningOpen := at(now, 9, 0)
		lunchStart := at(now, 11, 30)
		lunchEnd := at(now, 12, 30)
		closing := at(now, closeH, closeM)

		switch {
		case !now.Before(morningOpen) && now.Before(lunchStart):
			status.Open = true
			status.Phase = PhaseOpen
			status.ClosesAt = "11:30"
			return status
		case !now.Before(lunchStart) && now.Before(lunchEnd):
			status.Phase = PhaseLunchBreak
			status.Reason = "lunch break"
			status.OpensAt = "12:30"
			status.OpensDate = dateKey(now)
			return status
		case !now.Before(lunchEnd) && now.Before(closing):
			status.Open = true
			status.Phase = PhaseOpen
			status.ClosesAt = closing.Format("15:04")
			return status
		case now.Before(morningOpen):
			status.Reason = "before open"
			status.OpensAt = "09:00"
			status.OpensDate = dateKey(now)
			return status
		}
		status.Reason = "after close"
	} else {
		status.Reason = s.closedReason(now)
	}

	next := s.NextTradingDay(now)
	status.OpensAt = "09:00"
	status.OpensDate = dateKey(next)
	return status
}

func (s *MarketHoursService) closedReason(day time.Time) string {
	if name, ok := closures(day.Year())[dateKey(day)]; ok {
		return name
	}
	return "weekend"
}

// NextTradingDay returns the first trading day strictly after t's calendar day
func (s *MarketHoursService) NextTradingDay(t time.Time) time.Time {
	day := t.In(Tokyo)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, Tokyo)
	for i := 0; i < 14; i++ {
		day = day.AddDate(0, 0, 1)
		if s.IsTradingDay(day) {
			return day
		}
	}
	return day
}

// Holidays lists the weekday closures of a year in date order. Weekend
// holidays are omitted since the exchange is closed anyway.
func (s *MarketHoursService) Holidays(year int) []Holiday {
	out := make([]Holiday, 0, 20)
	for date, name := range closures(year) {
		d, err := time.ParseInLocation("2006-01-02", date, Tokyo)
		if err != nil || d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, Holiday{Date: date, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// closures returns national holidays plus exchange year-end closures keyed by date
func closures(year int) map[string]string {
	days := nationalHolidays(year)
	for _, d := range []int{2, 3} {
		key := dateKey(time.Date(year, time.January, d, 0, 0, 0, 0, Tokyo))
		if _, ok := days[key]; !ok {
			days[key] = "Exchange New Year holiday"
		}
	}
	days[dateKey(time.Date(year, time.December, 31, 0, 0, 0, 0, Tokyo))] = "Exchange year-end holiday"
	return days
}

func nthMonday(year int, month time.Month, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, Tokyo)
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

// equinoxDay approximates the equinox day of month for 1980-2099
func equinoxDay(year int, base float64) int {
	y := float64(year - 1980)
	return int(math.Floor(base + 0.242194*y - math.Floor(y/4)))
}

func nationalHolidays(year int) map[string]string {
	fixed := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, Tokyo)
	}

	list := []struct {
		date time.Time
		name string
	}{
		{fixed(time.January, 1), "New Year's Day"},
		{nthMonday(year, time.January, 2), "Coming of Age Day"},
		{fixed(time.February, 11), "National Foundation Day"},
		{fixed(time.February, 23), "Emperor's Birthday"},
		{fixed(time.March, equinoxDay(year, 20.8431)), "Vernal Equinox Day"},
		{fixed(time.April, 29), "Showa Day"},
		{fixed(time.May, 3), "Constitution Memorial Day"},
		{fixed(time.May, 4), "Greenery Day"},
		{fixed(time.May, 5), "Children's Day"},
		{nthMonday(year, time.July, 3), "Marine Day"},
		{fixed(time.August, 11), "Mountain Day"},
		{nthMonday(year, time.September, 3), "Respect for the Aged Day"},
		{fixed(time.September, equinoxDay(year, 23.2488)), "Autumnal Equinox Day"},
		{nthMonday(year, time.October, 2), "Sports Day"},
		{fixed(time.November, 3), "Culture Day"},
		{fixed(time.November, 23), "Labor Thanksgiving Day"},
	}

	days := make(map[string]string, len(list)+4)
	for _, h := range list {
		days[dateKey(h.date)] = h.name
	}

	// A weekday between two holidays is a citizens' holiday
	for _, h := range list {
		between := h.date.AddDate(0, 0, 1)
		_, isHoliday := days[dateKey(between)]
		_, nextIsHoliday := days[dateKey(between.AddDate(0, 0, 1))]
		if !isHoliday && nextIsHoliday && between.Weekday() != time.Sunday {
			days[dateKey(between)] = "Citizens' Holiday"
		}
	}

	// A holiday on Sunday moves to the next non-holiday day
	for _, h := range list {
		if h.date.Weekday() != time.Sunday {
			continue
		}
		sub := h.date.AddDate(0, 0, 1)
		for {
			if _, taken := days[dateKey(sub)]; !taken {
				break
			}
			sub = sub.AddDate(0, 0, 1)
		}
		days[dateKey(sub)] = "Substitute Holiday"
	}

	return days
}
