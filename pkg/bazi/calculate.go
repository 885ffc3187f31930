package bazi

import (
	"fmt"
	"time"
)

const (
	minBirthYear = 1900
	maxBirthYear = 2100
)

// SplitGanZhi splits a stem-branch string into its first two characters.
// Characters are runes, so multi-byte CJK input splits correctly.
func SplitGanZhi(ganZhi string) (Pillar, error) {
	runes := []rune(ganZhi)
	if len(runes) < 2 {
		return Pillar{}, &MalformedPillarError{Value: ganZhi}
	}
	return Pillar{Stem: string(runes[0]), Branch: string(runes[1])}, nil
}

// ValidateBirth rejects birth instants the calendar service cannot resolve.
func ValidateBirth(birth time.Time) error {
	if birth.IsZero() {
		return fmt.Errorf("birth time is required")
	}
	if y := birth.Year(); y < minBirthYear || y > maxBirthYear {
		return fmt.Errorf("%w: got %d", ErrBirthOutOfRange, y)
	}
	return nil
}

// Calculate builds a Chart from the birth instant, the externally supplied
// stem-branch strings and the lunar date. The hour pillar is derived from
// birth.Hour() in birth's location. Calculate has no side effects.
func Calculate(birth time.Time, gz GanZhi, lunar LunarDate) (Chart, error) {
	year, err := SplitGanZhi(gz.Year)
	if err != nil {
		return Chart{}, fmt.Errorf("year pillar: %w", err)
	}
	month, err := SplitGanZhi(gz.Month)
	if err != nil {
		return Chart{}, fmt.Errorf("month pillar: %w", err)
	}
	day, err := SplitGanZhi(gz.Day)
	if err != nil {
		return Chart{}, fmt.Errorf("day pillar: %w", err)
	}

	hour, err := HourPillar(birth.Hour(), day.Stem)
	if err != nil {
		return Chart{}, fmt.Errorf("hour pillar: %w", err)
	}

	return Chart{
		Year:  year,
		Month: month,
		Day:   day,
		Hour:  hour,
		Lunar: lunar,
	}, nil
}
