// Package checkoutcmder provides the checkout command, which loads an archived
// reading into the analysis session.
package checkoutcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/dotdir"
	"github.com/papercomputeco/bazi/pkg/setup"
	"github.com/papercomputeco/bazi/pkg/storage"
	"github.com/papercomputeco/bazi/pkg/utils"
)

type checkoutCommander struct {
	id            string
	api           string
	storageDriver string
	sqlitePath    string
}

const checkoutLongDesc string = `Load an archived reading into the analysis session.

The reading's birth data and its question and answer become the saved
session, so "bazi analyze --resume" continues from it. Checking out a mind
map keeps only the birth data.

Readings come from the local archive, or from a running "bazi serve" with
--api. With no id the saved session is cleared.

Examples:
  bazi checkout 4c1f...          Load a reading from the local archive
  bazi checkout 4c1f... --api http://localhost:8090
  bazi checkout                  Clear the saved session`

const checkoutShortDesc string = "Load an archived reading into the session"

func NewCheckoutCmd() *cobra.Command {
	cmder := &checkoutCommander{}

	cmd := &cobra.Command{
		Use:   "checkout [id]",
		Short: checkoutShortDesc,
		Long:  checkoutLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmder.id = args[0]
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.api, "api", "a", "", "Fetch the reading from this bazi API server instead of the local archive")
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLitePath, &cmder.sqlitePath)

	return cmd
}

func (c *checkoutCommander) run(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	out := cmd.OutOrStdout()
	sessions := dotdir.NewManager()

	if c.id == "" {
		if err := sessions.ClearSession(configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		fmt.Fprintln(out, "Session cleared. Next analyze will start a new reading.")
		return nil
	}

	env, err := setup.FromCommand(cmd, config.FlagStorageDriver, config.FlagSQLitePath)
	if err != nil {
		return err
	}

	var r *storage.Reading
	if c.api != "" {
		env.Logger.Debug("fetching reading", "id", c.id, "api", c.api)
		r, err = fetchReading(cmd.Context(), c.api, c.id)
	} else {
		r, err = c.loadReading(cmd.Context(), env)
	}
	if err != nil {
		return err
	}

	state := sessionFor(r)
	if err := sessions.SaveSession(state, configDir); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	fmt.Fprintf(out, "Checked out %s (%d messages)\n", utils.Truncate(r.ID, 16), len(state.Messages))
	for _, msg := range state.Messages {
		fmt.Fprintf(out, "  [%s] %s\n", msg.Role, utils.Truncate(msg.Content, 60))
	}
	return nil
}

func (c *checkoutCommander) loadReading(ctx context.Context, env *setup.Env) (*storage.Reading, error) {
	driver, err := archive.OpenDriver(ctx, env.Config.Storage, env.Dir, env.Logger)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, errors.New("reading archive is disabled, set storage.driver or use --api")
	}
	defer driver.Close()

	r, err := driver.Get(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("loading reading: %w", err)
	}
	return r, nil
}

// fetchReading asks a bazi API server for one archived reading.
func fetchReading(ctx context.Context, api, id string) (*storage.Reading, error) {
	url := strings.TrimRight(api, "/") + "/readings/" + id

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting reading from API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r storage.Reading
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}
	return &r, nil
}

// sessionFor builds the session that continues r.
func sessionFor(r *storage.Reading) *dotdir.SessionState {
	state := &dotdir.SessionState{
		Birth:     r.Birth.Format(time.RFC3339),
		Gender:    string(r.Gender),
		ReadingID: r.ID,
		Messages:  []dotdir.SessionMessage{},
		UpdatedAt: time.Now().UTC(),
	}

	if r.Kind == storage.KindAnalysis && r.Content != "" {
		state.Messages = append(state.Messages,
			dotdir.SessionMessage{Role: "user", Content: r.Question},
			dotdir.SessionMessage{Role: "assistant", Content: r.Content},
		)
	}

	return state
}
