// Package chartcmder provides the chart command, which prints the four
// pillars for a birth time.
package chartcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/cliui"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/setup"
)

type chartCommander struct {
	flags setup.BirthFlags
	json  bool
}

const chartLongDesc string = `Compute the four pillars for a birth time.

The year, month and day pillars and the lunar date come from the TianAPI
calendar service. The hour pillar is derived locally from the day stem.
Birth times without a zone are read as Beijing time (UTC+8).

Examples:
  bazi chart --birth "1990-05-15 14:30" --gender male
  bazi chart -b 1990-05-15T14:30:00+08:00 -g female --json`

const chartShortDesc string = "Compute the four pillars for a birth time"

func NewChartCmd() *cobra.Command {
	cmder := &chartCommander{}

	cmd := &cobra.Command{
		Use:   "chart",
		Short: chartShortDesc,
		Long:  chartLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			birth, gender, err := cmder.flags.Parse()
			if err != nil {
				return err
			}

			env, err := setup.FromCommand(cmd)
			if err != nil {
				return err
			}

			cal, err := env.Calendar()
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cal, birth, gender)
		},
	}

	cmder.flags.Register(cmd)
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the chart as JSON")

	return cmd
}

func (c *chartCommander) run(ctx context.Context, out io.Writer, cal reading.Lookuper, birth time.Time, gender bazi.Gender) error {
	chart, res, err := reading.ChartFor(ctx, cal, birth)
	if err != nil {
		return err
	}

	if c.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(reading.Summarize(chart, res, gender))
	}

	fmt.Fprintln(out, cliui.RenderChart(cliui.NewChartView(chart, res, gender)))
	return nil
}
