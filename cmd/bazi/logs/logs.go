// Package logscmder provides the logs command, which prints and follows the
// rotating log file.
package logscmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/setup"
)

type logsCommander struct {
	file   string
	lines  int
	follow bool
}

const logsLongDesc string = `Print the tail of the bazi log file.

The log file is configured with log.file (or --log-file on serve) and holds
JSON records from every command that ran with it set.

Examples:
  bazi logs
  bazi logs -n 200
  bazi logs --follow`

const logsShortDesc string = "Print or follow the log file"

func NewLogsCmd() *cobra.Command {
	cmder := &logsCommander{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: logsShortDesc,
		Long:  logsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup.FromCommand(cmd, config.FlagLogFile)
			if err != nil {
				return err
			}

			path := env.Config.Log.File
			if path == "" {
				return errors.New(`no log file configured, set one with "bazi config set log.file <path>"`)
			}

			out := cmd.OutOrStdout()
			if err := tail(path, cmder.lines, out); err != nil {
				return err
			}
			if !cmder.follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			err = followLog(ctx, path, out)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.file)
	cmd.Flags().IntVarP(&cmder.lines, "lines", "n", 50, "Number of lines to print before following")
	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep printing new records as they are written")

	return cmd
}

// tail writes the last n lines of path.
func tail(path string, n int, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		return nil
	}

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading log file: %w", err)
	}

	for _, line := range ring {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

// followLog copies records appended to path until ctx ends. When the file is
// rotated the new file is read from its start.
func followLog(ctx context.Context, path string, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { file.Close() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating log watcher: %w", err)
	}
	defer watcher.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching log dir: %w", err)
	}

	buf := make([]byte, 4096)
	readAvailable := func() error {
		for {
			n, err := file.Read(buf)
			if n > 0 {
				if _, writeErr := out.Write(buf[:n]); writeErr != nil {
					return writeErr
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}

	if err := readAvailable(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// Rotated: drain the old file, then switch to the new one.
				if err := readAvailable(); err != nil {
					return err
				}
				next, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("reopening log file: %w", err)
				}
				file.Close()
				file = next
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := readAvailable(); err != nil {
				return err
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("log watcher error: %w", err)
		}
	}
}
