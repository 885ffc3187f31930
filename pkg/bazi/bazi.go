// Package bazi computes the four pillars of a BaZi birth chart.
//
// The year, month and day pillars come from an external calendar service as
// two-character stem-branch strings. Only the hour pillar is derived locally,
// from the hour of birth and the day stem.
package bazi

import "slices"

var (
	stems    = []string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	branches = []string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}
)

// Stems returns the ten heavenly stems in cyclic order.
func Stems() []string {
	return slices.Clone(stems)
}

// Branches returns the twelve earthly branches in cyclic order.
func Branches() []string {
	return slices.Clone(branches)
}

// StemIndex returns the position of s in the stem cycle, or -1.
func StemIndex(s string) int {
	return slices.Index(stems, s)
}

// BranchIndex returns the position of b in the branch cycle, or -1.
func BranchIndex(b string) int {
	return slices.Index(branches, b)
}

// Pillar is a stem-branch pair naming one time unit of the chart.
type Pillar struct {
	Stem   string `json:"stem"`
	Branch string `json:"branch"`
}

func (p Pillar) String() string {
	return p.Stem + p.Branch
}

// Valid reports whether both halves belong to their alphabets.
func (p Pillar) Valid() bool {
	return StemIndex(p.Stem) >= 0 && BranchIndex(p.Branch) >= 0
}

// LunarDate is a date in the Chinese lunisolar calendar.
type LunarDate struct {
	Year   int  `json:"year"`
	Month  int  `json:"month"`
	Day    int  `json:"day"`
	IsLeap bool `json:"is_leap"`
}

// GanZhi holds the stem-branch strings supplied by the calendar service.
type GanZhi struct {
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

// Chart is a computed birth chart. It is a value type and is never mutated
// after Calculate returns it.
type Chart struct {
	Year  Pillar    `json:"year"`
	Month Pillar    `json:"month"`
	Day   Pillar    `json:"day"`
	Hour  Pillar    `json:"hour"`
	Lunar LunarDate `json:"lunar_date"`
}

// Pillars returns the pillars in year, month, day, hour order.
func (c Chart) Pillars() [4]Pillar {
	return [4]Pillar{c.Year, c.Month, c.Day, c.Hour}
}
