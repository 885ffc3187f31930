package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/bazi/pkg/dotdir"
)

// EnvPrefix is prepended to every environment override, for example
// BAZI_CHAT_MODEL for chat.model.
const EnvPrefix = "BAZI"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the BAZI_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (BAZI_CHAT_MODEL, BAZI_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("calendar.endpoint", d.Calendar.Endpoint)
	v.SetDefault("calendar.timeout_seconds", d.Calendar.TimeoutSeconds)

	v.SetDefault("chat.endpoint", d.Chat.Endpoint)
	v.SetDefault("chat.backend", d.Chat.Backend)
	v.SetDefault("chat.model", d.Chat.Model)
	v.SetDefault("chat.mindmap_model", d.Chat.MindmapModel)
	v.SetDefault("chat.temperature", d.Chat.Temperature)
	v.SetDefault("chat.max_tokens", d.Chat.MaxTokens)
	v.SetDefault("chat.timeout_seconds", d.Chat.TimeoutSeconds)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.mcp", d.API.MCP)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}

// FromViper reads every key back out of v into a Config, so flag, env, file
// and default layers are resolved in one place.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Calendar: CalendarConfig{
			Endpoint:       v.GetString("calendar.endpoint"),
			TimeoutSeconds: v.GetInt("calendar.timeout_seconds"),
		},
		Chat: ChatConfig{
			Endpoint:       v.GetString("chat.endpoint"),
			Backend:        v.GetString("chat.backend"),
			Model:          v.GetString("chat.model"),
			MindmapModel:   v.GetString("chat.mindmap_model"),
			Temperature:    v.GetFloat64("chat.temperature"),
			MaxTokens:      v.GetInt("chat.max_tokens"),
			TimeoutSeconds: v.GetInt("chat.timeout_seconds"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
			MCP:    v.GetBool("api.mcp"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
			File:  v.GetString("log.file"),
		},
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Events: EventsConfig{
			Brokers: v.GetString("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
	}
}
