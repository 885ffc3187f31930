package bazi

import (
	"fmt"
	"strings"
)

// Gender selects the direction of the life-decade sequence.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ParseGender accepts "male"/"female" (and 男/女), case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "男":
		return Male, nil
	case "female", "f", "女":
		return Female, nil
	default:
		return "", fmt.Errorf("unknown gender %q (expected male or female)", s)
	}
}

// Label returns the Chinese label used in prompts.
func (g Gender) Label() string {
	if g == Male {
		return "男"
	}
	return "女"
}

// lifeDecadeCount is the number of ten-year periods in the sequence.
const lifeDecadeCount = 10

// LifeDecades derives the ten life-decade pillars by stepping the month
// pillar forward for male charts and backward otherwise.
func LifeDecades(chart Chart, gender Gender) []Pillar {
	stemIndex := StemIndex(chart.Month.Stem)
	branchIndex := BranchIndex(chart.Month.Branch)
	if stemIndex < 0 || branchIndex < 0 {
		return nil
	}

	direction := -1
	if gender == Male {
		direction = 1
	}

	n, m := len(stems), len(branches)
	decades := make([]Pillar, 0, lifeDecadeCount)
	for i := range lifeDecadeCount {
		s := ((stemIndex+direction*i)%n + n) % n
		b := ((branchIndex+direction*i)%m + m) % m
		decades = append(decades, Pillar{Stem: stems[s], Branch: branches[b]})
	}

	return decades
}
