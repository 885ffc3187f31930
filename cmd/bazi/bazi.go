// Package bazicmder
package bazicmder

import (
	"github.com/spf13/cobra"

	analyzecmder "github.com/papercomputeco/bazi/cmd/bazi/analyze"
	authcmder "github.com/papercomputeco/bazi/cmd/bazi/auth"
	chartcmder "github.com/papercomputeco/bazi/cmd/bazi/chart"
	checkoutcmder "github.com/papercomputeco/bazi/cmd/bazi/checkout"
	configcmder "github.com/papercomputeco/bazi/cmd/bazi/config"
	historycmder "github.com/papercomputeco/bazi/cmd/bazi/history"
	initcmder "github.com/papercomputeco/bazi/cmd/bazi/init"
	logscmder "github.com/papercomputeco/bazi/cmd/bazi/logs"
	mindmapcmder "github.com/papercomputeco/bazi/cmd/bazi/mindmap"
	servecmder "github.com/papercomputeco/bazi/cmd/bazi/serve"
	statuscmder "github.com/papercomputeco/bazi/cmd/bazi/status"
	versioncmder "github.com/papercomputeco/bazi/cmd/version"
)

const baziLongDesc string = `bazi computes Four Pillars (八字) charts and streams readings of them.

Get started:
  bazi init                          Create a .bazi/ directory
  bazi auth tianapi                  Store the calendar API key
  bazi auth siliconflow              Store the chat API key
  bazi chart -b "1990-05-15 14:30" -g male
  bazi analyze -b "1990-05-15 14:30" -g male

Run the HTTP API and MCP endpoint with:
  bazi serve --mcp`

const baziShortDesc string = "bazi - Four Pillars charts and readings"

func NewBaziCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bazi",
		Short:        baziShortDesc,
		Long:         baziLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .bazi/ config directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(chartcmder.NewChartCmd())
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(mindmapcmder.NewMindmapCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(checkoutcmder.NewCheckoutCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(logscmder.NewLogsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
