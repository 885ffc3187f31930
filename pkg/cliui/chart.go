package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/calendar"
	"github.com/papercomputeco/bazi/pkg/utils"
)

const cellWidth = 8

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	// ThinkingStyle renders reasoning text dimmed and italic.
	ThinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
)

// ChartView is everything shown by RenderChart.
type ChartView struct {
	Chart  bazi.Chart
	Gender bazi.Gender

	// LunarLabel is the human readable lunar date, e.g. "四月廿一".
	LunarLabel string

	// Decades are the first life decades, oldest first. Optional.
	Decades []bazi.Pillar
}

// RenderChart draws the four pillars as a boxed table with the stems above
// the branches.
func RenderChart(v ChartView) string {
	var b strings.Builder

	labels := []string{"年柱", "月柱", "日柱", "时柱"}
	pillars := v.Chart.Pillars()

	for _, l := range labels {
		b.WriteString(headerStyle.Render(utils.PadWidth(l, cellWidth)))
	}
	b.WriteString("\n")
	for _, p := range pillars {
		b.WriteString(stemStyle.Render(utils.PadWidth(p.Stem, cellWidth)))
	}
	b.WriteString("\n")
	for _, p := range pillars {
		b.WriteString(branchStyle.Render(utils.PadWidth(p.Branch, cellWidth)))
	}

	lunar := v.Chart.Lunar
	leap := ""
	if lunar.IsLeap {
		leap = "闰"
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s  农历 %d年%s%d月%d日",
		headerStyle.Render("性别"), v.Gender.Label(), lunar.Year, leap, lunar.Month, lunar.Day)
	if v.LunarLabel != "" {
		fmt.Fprintf(&b, " (%s)", v.LunarLabel)
	}

	if len(v.Decades) > 0 {
		names := make([]string, 0, len(v.Decades))
		for _, d := range v.Decades {
			names = append(names, d.String())
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s", headerStyle.Render("大运"), strings.Join(names, " "))
	}

	return boxStyle.Render(b.String())
}

// NewChartView builds the view of chart with the life decades for gender
// and the traditional lunar date names from res.
func NewChartView(chart bazi.Chart, res calendar.Result, gender bazi.Gender) ChartView {
	return ChartView{
		Chart:      chart,
		Gender:     gender,
		LunarLabel: res.LunarMonthName + res.LunarDayName,
		Decades:    bazi.LifeDecades(chart, gender),
	}
}
