// Package historycmder provides the history command, which lists archived
// readings.
package historycmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/cliui"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/setup"
	"github.com/papercomputeco/bazi/pkg/storage"
	"github.com/papercomputeco/bazi/pkg/utils"
)

type historyCommander struct {
	kind          string
	limit         int
	json          bool
	storageDriver string
	sqlitePath    string
	postgresDSN   string
}

const historyLongDesc string = `List archived readings, newest first.

Readings are archived by analyze, mindmap and the API server when a storage
driver is configured.

Examples:
  bazi history
  bazi history --kind mindmap --limit 5
  bazi history --json`

const historyShortDesc string = "List archived readings"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind := storage.Kind(cmder.kind)
			switch kind {
			case "", storage.KindAnalysis, storage.KindMindmap:
			default:
				return fmt.Errorf("invalid --kind %q (available: analysis, mindmap)", cmder.kind)
			}

			env, err := setup.FromCommand(cmd,
				config.FlagStorageDriver,
				config.FlagSQLitePath,
				config.FlagPostgresDSN,
			)
			if err != nil {
				return err
			}

			driver, err := archive.OpenDriver(cmd.Context(), env.Config.Storage, env.Dir, env.Logger)
			if err != nil {
				return err
			}
			if driver == nil {
				return errors.New("reading archive is disabled, set storage.driver")
			}
			defer driver.Close()

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), driver, kind)
		},
	}

	cmd.Flags().StringVarP(&cmder.kind, "kind", "k", "", "Only list this kind (analysis, mindmap)")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 20, "Maximum readings to list")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the readings as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLitePath, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)

	return cmd
}

func (c *historyCommander) run(ctx context.Context, out io.Writer, driver storage.Driver, kind storage.Kind) error {
	readings, err := driver.List(ctx, storage.ListOptions{Kind: kind, Limit: c.limit})
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	if c.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(readings)
	}

	if len(readings) == 0 {
		fmt.Fprintf(out, "  %s No archived readings.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintln(out)
	for _, r := range readings {
		pillars := r.Chart.Pillars()
		names := make([]string, 0, len(pillars))
		for _, p := range pillars {
			names = append(names, p.String())
		}

		summary := r.Question
		if r.Kind == storage.KindMindmap {
			summary = firstLine(r.Content)
		}

		fmt.Fprintf(out, "  %s  %s  %s  %s  %s\n",
			cliui.DimStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			cliui.NameStyle.Render(utils.PadWidth(string(r.Kind), 8)),
			cliui.ValueStyle.Render(strings.Join(names, " ")),
			cliui.KeyStyle.Render(utils.Truncate(r.ID, 8)),
			utils.TruncateWidth(summary, 40),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimLeft(line, "# ")
}
