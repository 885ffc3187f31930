package calendar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papercomputeco/bazi/pkg/bazi"
)

// successCode is the value of "code" on a successful lookup.
const successCode = 200

// leapMarker marks a leap month in the lunar month name.
const leapMarker = "闰"

// lunarResponse is the lookup endpoint's response envelope.
type lunarResponse struct {
	Code   int          `json:"code"`
	Msg    string       `json:"msg"`
	Result *lunarResult `json:"result"`
}

type lunarResult struct {
	LunarDate   string `json:"lunardate"`
	GanZhiYear  string `json:"tiangandizhiyear"`
	GanZhiMonth string `json:"tiangandizhimonth"`
	GanZhiDay   string `json:"tiangandizhiday"`

	// The service spells this field "lubarmonth".
	LunarMonth string `json:"lubarmonth"`
	LunarDay   string `json:"lunarday"`
}

// Result is everything one lookup returns for a solar date.
type Result struct {
	Lunar  bazi.LunarDate `json:"lunar_date"`
	GanZhi bazi.GanZhi    `json:"ganzhi"`

	// LunarMonthName and LunarDayName are the traditional names, for
	// example "闰四月" and "十五".
	LunarMonthName string `json:"lunar_month_name,omitempty"`
	LunarDayName   string `json:"lunar_day_name,omitempty"`
}

func (r *lunarResult) lunar() (bazi.LunarDate, error) {
	parts := strings.Split(r.LunarDate, "-")
	if len(parts) != 3 {
		return bazi.LunarDate{}, fmt.Errorf("lunar date %q is not Y-M-D", r.LunarDate)
	}

	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return bazi.LunarDate{}, fmt.Errorf("lunar date %q: %w", r.LunarDate, err)
		}
		ymd[i] = n
	}

	return bazi.LunarDate{
		Year:   ymd[0],
		Month:  ymd[1],
		Day:    ymd[2],
		IsLeap: strings.Contains(r.LunarMonth, leapMarker),
	}, nil
}

func (r *lunarResult) ganZhi() (bazi.GanZhi, bool) {
	gz := bazi.GanZhi{Year: r.GanZhiYear, Month: r.GanZhiMonth, Day: r.GanZhiDay}
	return gz, gz.Year != "" && gz.Month != "" && gz.Day != ""
}
