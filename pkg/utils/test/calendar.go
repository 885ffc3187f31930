package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/calendar"
)

// MockCalendar answers every lookup with Result, or Err when set.
type MockCalendar struct {
	Result calendar.Result
	Err    error

	mu    sync.Mutex
	dates []time.Time
}

// NewMockCalendar returns a MockCalendar for 1990-05-15, a 庚午 year,
// 辛巳 month and 庚辰 day.
func NewMockCalendar() *MockCalendar {
	return &MockCalendar{
		Result: calendar.Result{
			Lunar:          bazi.LunarDate{Year: 1990, Month: 4, Day: 21},
			GanZhi:         bazi.GanZhi{Year: "庚午", Month: "辛巳", Day: "庚辰"},
			LunarMonthName: "四月",
			LunarDayName:   "廿一",
		},
	}
}

func (m *MockCalendar) Lookup(_ context.Context, date time.Time) (calendar.Result, error) {
	m.mu.Lock()
	m.dates = append(m.dates, date)
	m.mu.Unlock()

	if m.Err != nil {
		return calendar.Result{}, m.Err
	}
	return m.Result, nil
}

// Dates returns the dates looked up so far.
func (m *MockCalendar) Dates() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.dates...)
}
