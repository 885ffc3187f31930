// Package configcmder provides the config command for managing persistent
// bazi configuration stored in the .bazi/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent bazi configuration.

Configuration is stored as config.toml in the .bazi/ directory and provides
default values for command flags. BAZI_ environment variables override the
file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  calendar.endpoint, calendar.timeout_seconds,
  chat.endpoint, chat.backend, chat.model, chat.mindmap_model,
  chat.temperature, chat.max_tokens, chat.timeout_seconds,
  api.listen, api.mcp,
  log.level, log.json, log.file,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  bazi config set <key> <value>    Set a configuration value
  bazi config get <key>            Get a configuration value
  bazi config list                 List all configuration values

Examples:
  bazi config set chat.model deepseek-ai/DeepSeek-R1
  bazi config set storage.driver postgres
  bazi config get chat.model
  bazi config list`

const configShortDesc string = "Manage persistent bazi configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
