// Package setup turns resolved configuration into the clients, orchestrators
// and archive shared by every bazi command.
package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/calendar"
	"github.com/papercomputeco/bazi/pkg/chat"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/credentials"
	"github.com/papercomputeco/bazi/pkg/dotdir"
	"github.com/papercomputeco/bazi/pkg/logger"
	"github.com/papercomputeco/bazi/pkg/reading"
)

// Options controls how an Env is built.
type Options struct {
	// ConfigDir overrides .bazi/ directory resolution.
	ConfigDir string

	// Debug forces debug level logging regardless of log.level.
	Debug bool

	// LogWriter receives console logs. Defaults to os.Stderr so command
	// output on stdout stays clean.
	LogWriter io.Writer
}

// Env is the resolved runtime shared by a command invocation.
type Env struct {
	Config *config.Config
	Dir    string
	Logger *slog.Logger

	creds *credentials.Manager
}

// New resolves v into an Env.
func New(v *viper.Viper, opts Options) (*Env, error) {
	cfg := config.FromViper(v)

	dir, err := dotdir.NewManager().Target(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = slog.LevelDebug
	}

	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}

	log := logger.New(
		logger.WithWriter(w),
		logger.WithLevel(level),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithPretty(!cfg.Log.JSON),
		logger.WithFile(cfg.Log.File),
	)

	creds, err := credentials.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	return &Env{
		Config: cfg,
		Dir:    dir,
		Logger: log,
		creds:  creds,
	}, nil
}

// Calendar builds the lunar calendar client.
func (e *Env) Calendar() (*calendar.Client, error) {
	key, err := e.creds.Resolve(credentials.ProviderTianAPI)
	if err != nil {
		return nil, err
	}

	return calendar.NewClient(calendar.Config{
		Endpoint: e.Config.Calendar.Endpoint,
		APIKey:   key,
		Timeout:  seconds(e.Config.Calendar.TimeoutSeconds),
	}, calendar.WithLogger(e.Logger)), nil
}

// Streamer builds the chat backend. A non-nil transcript receives a copy of
// every raw response stream.
func (e *Env) Streamer(transcript io.Writer) (chat.Streamer, error) {
	key, err := e.creds.Resolve(credentials.ProviderSiliconFlow)
	if err != nil {
		return nil, err
	}

	opts := []chat.Option{chat.WithLogger(e.Logger)}
	if transcript != nil {
		opts = append(opts, chat.WithTranscript(transcript))
	}

	return chat.New(e.Config.Chat.Backend, chat.Config{
		Endpoint: e.Config.Chat.Endpoint,
		APIKey:   key,
		Timeout:  seconds(e.Config.Chat.TimeoutSeconds),
	}, opts...)
}

// Analyzer builds an analyzer on s.
func (e *Env) Analyzer(s chat.Streamer) *reading.Analyzer {
	return &reading.Analyzer{
		Streamer:    s,
		Model:       e.Config.Chat.Model,
		Temperature: e.Config.Chat.Temperature,
		MaxTokens:   e.Config.Chat.MaxTokens,
		Logger:      e.Logger,
	}
}

// Mindmapper builds a mind map generator on s.
func (e *Env) Mindmapper(s chat.Streamer) *reading.Mindmapper {
	return &reading.Mindmapper{
		Streamer:    s,
		Model:       e.Config.Chat.MindmapModel,
		Temperature: e.Config.Chat.Temperature,
		Logger:      e.Logger,
	}
}

// Archive opens the configured reading archive.
func (e *Env) Archive(ctx context.Context) (*archive.Archive, error) {
	return archive.Open(ctx, e.Config, e.Dir, e.Logger)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Services is the reading pipeline shared by the long-running servers.
type Services struct {
	Calendar   *calendar.Client
	Analyzer   *reading.Analyzer
	Mindmapper *reading.Mindmapper
	Archive    *archive.Archive
}

// Services builds the calendar, both orchestrators and the archive. Callers
// close the archive.
func (e *Env) Services(ctx context.Context) (*Services, error) {
	cal, err := e.Calendar()
	if err != nil {
		return nil, err
	}

	streamer, err := e.Streamer(nil)
	if err != nil {
		return nil, err
	}

	arc, err := e.Archive(ctx)
	if err != nil {
		return nil, err
	}

	return &Services{
		Calendar:   cal,
		Analyzer:   e.Analyzer(streamer),
		Mindmapper: e.Mindmapper(streamer),
		Archive:    arc,
	}, nil
}
