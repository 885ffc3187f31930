// Package mindmapcmder provides the mindmap command, which asks the model for
// a markdown mind map of a chart.
package mindmapcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/cliui"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/eventstream"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/setup"
	"github.com/papercomputeco/bazi/pkg/storage"
)

type mindmapCommander struct {
	flags setup.BirthFlags

	model string
	out   string
	raw   bool
}

const mindmapLongDesc string = `Generate a markdown mind map of a chart.

The map is rendered for the terminal once complete. Use --raw to print the
markdown as is, or --out to write it to a file for a mind-map viewer such as
markmap.

Examples:
  bazi mindmap --birth "1990-05-15 14:30" --gender male
  bazi mindmap -b "1990-05-15 14:30" -g female --out chart.md`

const mindmapShortDesc string = "Generate a markdown mind map of a chart"

func NewMindmapCmd() *cobra.Command {
	cmder := &mindmapCommander{}

	cmd := &cobra.Command{
		Use:   "mindmap",
		Short: mindmapShortDesc,
		Long:  mindmapLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			birth, gender, err := cmder.flags.Parse()
			if err != nil {
				return err
			}

			env, err := setup.FromCommand(cmd, config.FlagMindmapCommand)
			if err != nil {
				return err
			}

			cal, err := env.Calendar()
			if err != nil {
				return err
			}

			streamer, err := env.Streamer(nil)
			if err != nil {
				return err
			}

			arc, err := env.Archive(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := arc.Close(); err != nil {
					env.Logger.Warn("closing archive", "error", err)
				}
			}()

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), generator{
				calendar:   cal,
				mindmapper: env.Mindmapper(streamer),
				pool:       arc.Pool,
			}, birth, gender)
		},
	}

	cmder.flags.Register(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagMindmapCommand, &cmder.model)
	cmd.Flags().StringVarP(&cmder.out, "out", "o", "", "Write the markdown to this file instead of the terminal")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the markdown without rendering it")

	return cmd
}

// generator holds what a mind map run needs.
type generator struct {
	calendar   reading.Lookuper
	mindmapper *reading.Mindmapper

	// pool archives the finished map. Optional.
	pool *archive.Pool
}

func (c *mindmapCommander) run(ctx context.Context, out, status io.Writer, g generator, birth time.Time, gender bazi.Gender) error {
	chart, _, err := reading.ChartFor(ctx, g.calendar, birth)
	if err != nil {
		return err
	}

	started := time.Now().UTC()
	var markdown string
	err = cliui.Step(status, "Generating mind map", func() error {
		updates, err := g.mindmapper.Generate(ctx, chart, gender)
		if err != nil {
			return err
		}
		markdown, err = reading.CollectMarkdown(updates)
		return err
	})
	if err != nil {
		return err
	}

	if g.pool != nil {
		g.pool.Enqueue(archive.Job{
			Surface: "cli",
			Meta: eventstream.RequestMeta{
				StartedAt:   started,
				CompletedAt: time.Now().UTC(),
			},
			Reading: storage.Reading{
				ID:        uuid.NewString(),
				Kind:      storage.KindMindmap,
				Birth:     birth,
				Gender:    gender,
				Chart:     chart,
				Model:     g.mindmapper.ModelName(),
				Content:   markdown,
				CreatedAt: started,
			},
		})
	}

	if c.out != "" {
		if err := os.WriteFile(c.out, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("writing mind map: %w", err)
		}
		fmt.Fprintf(status, "  %s Wrote %s\n", cliui.SuccessMark, c.out)
		return nil
	}

	if c.raw {
		fmt.Fprintln(out, markdown)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(markdown)
	if err != nil {
		// Still readable unrendered.
		fmt.Fprintln(out, markdown)
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}
