// Package analyzecmder provides the analyze command, an interactive chart
// reading streamed from the chat model.
package analyzecmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/cliui"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/dotdir"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/setup"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("问> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("答> ")
	thinkingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

type analyzeCommander struct {
	flags setup.BirthFlags

	model       string
	backend     string
	endpoint    string
	temperature float64
	maxTokens   int

	tui        bool
	transcript string
	noFollowup bool
	resume     bool
}

var analyzeFlags = []string{
	config.FlagModel,
	config.FlagBackend,
	config.FlagChatEndpoint,
	config.FlagTemperature,
	config.FlagMaxTokens,
}

const analyzeLongDesc string = `Stream a BaZi reading for a birth time, then keep asking follow-up questions.

The chart is printed first. The model's reasoning is shown dimmed while it
thinks, followed by the answer. Type a follow-up question at the prompt, or
/exit (Ctrl+D) to quit.

Every turn is saved to the .bazi session so "bazi analyze --resume" can pick
the conversation up again, and archived when a storage driver is configured.

Examples:
  bazi analyze --birth "1990-05-15 14:30" --gender male
  bazi analyze -b "1990-05-15 14:30" -g female --tui
  bazi analyze --resume`

const analyzeShortDesc string = "Stream an interactive BaZi reading"

func NewAnalyzeCmd() *cobra.Command {
	cmder := &analyzeCommander{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.flags.Register(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagBackend, &cmder.backend)
	config.AddStringFlag(cmd, config.Flags, config.FlagChatEndpoint, &cmder.endpoint)
	config.AddFloatFlag(cmd, config.Flags, config.FlagTemperature, &cmder.temperature)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	cmd.Flags().BoolVar(&cmder.tui, "tui", false, "Run the reading in a full screen terminal UI")
	cmd.Flags().StringVar(&cmder.transcript, "transcript", "", "Append the raw response streams to this file")
	cmd.Flags().BoolVar(&cmder.noFollowup, "no-followup", false, "Exit after the initial reading")
	cmd.Flags().BoolVar(&cmder.resume, "resume", false, "Continue the saved session instead of starting a new one")

	return cmd
}

func (c *analyzeCommander) run(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	sessions := dotdir.NewManager()

	var (
		state *dotdir.SessionState
		err   error
	)
	if c.resume {
		state, err = sessions.LoadSession(configDir)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		if state == nil {
			return errors.New(`no saved session, start one with "bazi analyze --birth ... --gender ..."`)
		}
	}

	conv := &conversation{}
	if state != nil {
		conv.birth, conv.gender, conv.history, err = restore(state)
		if err != nil {
			return err
		}
		conv.readingID = state.ReadingID
	} else {
		conv.birth, conv.gender, err = c.flags.Parse()
		if err != nil {
			return err
		}
	}

	env, err := setup.FromCommand(cmd, analyzeFlags...)
	if err != nil {
		return err
	}
	conv.logger = env.Logger

	cal, err := env.Calendar()
	if err != nil {
		return err
	}

	var transcript io.Writer
	if c.transcript != "" {
		f, err := os.OpenFile(c.transcript, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening transcript: %w", err)
		}
		defer f.Close()
		transcript = f
	}

	streamer, err := env.Streamer(transcript)
	if err != nil {
		return err
	}
	conv.analyzer = env.Analyzer(streamer)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	arc, err := env.Archive(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := arc.Close(); err != nil {
			env.Logger.Warn("closing archive", "error", err)
		}
	}()
	conv.pool = arc.Pool
	conv.save = func(s *dotdir.SessionState) error {
		return sessions.SaveSession(s, configDir)
	}

	if state == nil {
		// A fresh reading replaces whatever was saved before.
		if err := sessions.ClearSession(configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
	}

	chart, res, err := reading.ChartFor(ctx, cal, conv.birth)
	if err != nil {
		return err
	}
	conv.chart = chart
	view := cliui.NewChartView(chart, res, conv.gender)

	if c.tui {
		return runTUI(ctx, conv, view, c.noFollowup)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cliui.RenderChart(view))
	return c.repl(ctx, conv, cmd.InOrStdin(), out)
}

// repl streams the initial reading unless the session is resumed, then reads
// follow-up questions until /exit or end of input.
func (c *analyzeCommander) repl(ctx context.Context, conv *conversation, in io.Reader, out io.Writer) error {
	if len(conv.history) == 0 {
		if err := streamTurn(ctx, conv, "", out); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "  %s Resuming session %s\n\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(conv.history))),
		)
	}

	if c.noFollowup {
		return nil
	}

	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Ask a follow-up question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := streamTurn(ctx, conv, input, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// streamTurn asks question, prints the reply as it arrives and records the
// finished turn. Nothing is recorded when the stream fails.
func streamTurn(ctx context.Context, conv *conversation, question string, out io.Writer) error {
	t, err := conv.ask(ctx, question)
	if err != nil {
		return err
	}

	p := &printer{out: out}
	for u := range t.updates {
		if u.Err != nil {
			fmt.Fprintln(out)
			return u.Err
		}
		p.handle(u)
	}
	fmt.Fprint(out, "\n\n")

	return conv.record(t, p.thinking, p.content.String())
}

// printer writes an analysis stream to a plain terminal. Thinking updates
// carry the whole reasoning so far; only the new suffix is printed.
type printer struct {
	out      io.Writer
	thinking string
	content  strings.Builder
	answered bool
}

func (p *printer) handle(u reading.Update) {
	if u.Thinking != "" {
		switch {
		case p.thinking == "":
			fmt.Fprint(p.out, thinkingStyle.Render(u.Thinking))
		case strings.HasPrefix(u.Thinking, p.thinking):
			fmt.Fprint(p.out, thinkingStyle.Render(u.Thinking[len(p.thinking):]))
		default:
			fmt.Fprint(p.out, "\n"+thinkingStyle.Render(u.Thinking))
		}
		p.thinking = u.Thinking
	}

	if u.Content != "" {
		if !p.answered {
			if p.thinking != "" {
				fmt.Fprint(p.out, "\n\n")
			}
			fmt.Fprint(p.out, assistantPrompt)
			p.answered = true
		}
		p.content.WriteString(u.Content)
		fmt.Fprint(p.out, u.Content)
	}
}
