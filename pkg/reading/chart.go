package reading

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/calendar"
)

// Lookuper resolves lunar and stem-branch data for a solar date.
// *calendar.Client satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, date time.Time) (calendar.Result, error)
}

// ChartFor validates birth, looks up its calendar day and computes the chart.
// Lookup errors are returned unwrapped so callers can match
// calendar.ErrGateway.
func ChartFor(ctx context.Context, l Lookuper, birth time.Time) (bazi.Chart, calendar.Result, error) {
	if err := bazi.ValidateBirth(birth); err != nil {
		return bazi.Chart{}, calendar.Result{}, err
	}

	res, err := l.Lookup(ctx, birth)
	if err != nil {
		return bazi.Chart{}, calendar.Result{}, err
	}

	chart, err := bazi.Calculate(birth, res.GanZhi, res.Lunar)
	if err != nil {
		return bazi.Chart{}, calendar.Result{}, fmt.Errorf("computing chart: %w", err)
	}

	return chart, res, nil
}

// ChartSummary is the presentation form of a chart shared by the API and the
// MCP tools.
type ChartSummary struct {
	Chart          bazi.Chart  `json:"chart"`
	Gender         bazi.Gender `json:"gender"`
	Pillars        []string    `json:"pillars"`
	Decades        []string    `json:"decades"`
	LunarMonthName string      `json:"lunar_month_name,omitempty"`
	LunarDayName   string      `json:"lunar_day_name,omitempty"`
}

// Summarize builds a ChartSummary with the pillars in year, month, day, hour
// order and the life decades in sequence.
func Summarize(chart bazi.Chart, res calendar.Result, gender bazi.Gender) ChartSummary {
	pillars := chart.Pillars()
	s := ChartSummary{
		Chart:          chart,
		Gender:         gender,
		Pillars:        make([]string, 0, len(pillars)),
		LunarMonthName: res.LunarMonthName,
		LunarDayName:   res.LunarDayName,
	}

	for _, p := range pillars {
		s.Pillars = append(s.Pillars, p.String())
	}
	for _, d := range bazi.LifeDecades(chart, gender) {
		s.Decades = append(s.Decades, d.String())
	}
	if s.Decades == nil {
		s.Decades = []string{}
	}

	return s
}
