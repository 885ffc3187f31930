package setup

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/bazi"
)

// BirthFlags are the --birth and --gender flags shared by the chart,
// analyze and mindmap commands.
type BirthFlags struct {
	Birth  string
	Gender string
}

// Register adds the flags to cmd.
func (b *BirthFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&b.Birth, "birth", "b", "", `Birth time, "YYYY-MM-DD HH:MM" in Beijing time or RFC 3339`)
	cmd.Flags().StringVarP(&b.Gender, "gender", "g", "", "Gender (male, female)")
}

// Parse validates the flags.
func (b BirthFlags) Parse() (time.Time, bazi.Gender, error) {
	if b.Birth == "" {
		return time.Time{}, "", errors.New("--birth is required")
	}
	if b.Gender == "" {
		return time.Time{}, "", errors.New("--gender is required")
	}

	birth, err := bazi.ParseBirth(b.Birth)
	if err != nil {
		return time.Time{}, "", err
	}
	if err := bazi.ValidateBirth(birth); err != nil {
		return time.Time{}, "", err
	}

	gender, err := bazi.ParseGender(b.Gender)
	if err != nil {
		return time.Time{}, "", err
	}

	return birth, gender, nil
}
