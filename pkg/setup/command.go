package setup

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/config"
)

// FromCommand builds an Env for cmd. The global --config-dir and --debug
// flags are honored, and the flags named by registryKeys are bound so they
// override environment and file values.
func FromCommand(cmd *cobra.Command, registryKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, registryKeys)

	return New(v, Options{
		ConfigDir: configDir,
		Debug:     debug,
		LogWriter: cmd.ErrOrStderr(),
	})
}
