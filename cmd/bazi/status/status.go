// Package statuscmder provides the status command for displaying the saved
// analysis session of the local .bazi directory.
package statuscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/cliui"
	"github.com/papercomputeco/bazi/pkg/dotdir"
	"github.com/papercomputeco/bazi/pkg/utils"
)

const statusLongDesc string = `Show the saved analysis session.

Reads the local .bazi/ directory (or ~/.bazi/) to display the birth data and
conversation that "bazi analyze --resume" would continue.

Examples:
  bazi status`

const statusShortDesc string = "Show the saved analysis session"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runStatus(out io.Writer, configDir string) error {
	state, err := dotdir.NewManager().LoadSession(configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if state == nil {
		fmt.Fprintf(out, "  %s No saved session. Next analyze will start a new reading.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	gender := state.Gender
	if g, err := bazi.ParseGender(state.Gender); err == nil {
		gender = g.Label()
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Birth:   "), cliui.NameStyle.Render(state.Birth))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Gender:  "), cliui.NameStyle.Render(gender))
	if state.ReadingID != "" {
		fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Reading: "), cliui.ValueStyle.Render(state.ReadingID))
	}
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Updated: "), cliui.ValueStyle.Render(state.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render("Messages:"), cliui.NameStyle.Render(strconv.Itoa(len(state.Messages))))

	for i, msg := range state.Messages {
		preview := utils.Truncate(msg.Content, 72)
		fmt.Fprintf(out, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.WarnStyle.Render("["+msg.Role+"]"),
			cliui.ValueStyle.Render(preview),
		)
	}

	fmt.Fprintln(out)
	return nil
}
