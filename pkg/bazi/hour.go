package bazi

import "fmt"

// hourBoundary pairs an exclusive upper-bound hour with the branch of the
// two-hour window ending there.
type hourBoundary struct {
	before int
	branch string
}

// hourTable is searched in order; the first bound greater than the hour wins.
var hourTable = []hourBoundary{
	{1, "子"},  // 23:00-01:00
	{3, "丑"},  // 01:00-03:00
	{5, "寅"},  // 03:00-05:00
	{7, "卯"},  // 05:00-07:00
	{9, "辰"},  // 07:00-09:00
	{11, "巳"}, // 09:00-11:00
	{13, "午"}, // 11:00-13:00
	{15, "未"}, // 13:00-15:00
	{17, "申"}, // 15:00-17:00
	{19, "酉"}, // 17:00-19:00
	{21, "戌"}, // 19:00-21:00
	{23, "亥"}, // 21:00-23:00
}

// HourBranch maps a local hour of day (0-23) to its earthly branch.
func HourBranch(hour int) string {
	if hour >= 23 || hour < 1 {
		return "子"
	}

	for _, b := range hourTable {
		if hour < b.before {
			return b.branch
		}
	}

	return "子"
}

// HourStem derives the hour stem from the day stem and the hour branch.
func HourStem(dayStem, hourBranch string) (string, error) {
	dayIndex := StemIndex(dayStem)
	if dayIndex < 0 {
		return "", &UnknownStemError{Stem: dayStem}
	}

	branchIndex := BranchIndex(hourBranch)
	if branchIndex < 0 {
		return "", fmt.Errorf("unknown earthly branch %q", hourBranch)
	}

	start := (dayIndex * 2) % len(stems)
	return stems[(start+branchIndex)%len(stems)], nil
}

// HourPillar computes the hour pillar for the given hour and day stem.
func HourPillar(hour int, dayStem string) (Pillar, error) {
	branch := HourBranch(hour)
	stem, err := HourStem(dayStem, branch)
	if err != nil {
		return Pillar{}, err
	}
	return Pillar{Stem: stem, Branch: branch}, nil
}
