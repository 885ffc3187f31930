// Package reading drives the streamed chart readings: the narrative analysis
// with its separated reasoning, follow-up questions over a conversation
// history, and the markdown mind map.
package reading

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/chat"
)

const (
	// DefaultAnalysisModel is the reasoning model used for analyses.
	DefaultAnalysisModel = "Pro/deepseek-ai/DeepSeek-R1"

	// DefaultMindmapModel is the model used for mind maps.
	DefaultMindmapModel = "Pro/deepseek-ai/DeepSeek-V3"

	// DefaultTemperature is the sampling temperature for both readings.
	DefaultTemperature = 0.7
)

// ErrInvalidChart is returned when a chart has a pillar outside the stem or
// branch alphabets.
var ErrInvalidChart = errors.New("invalid chart")

func validateChart(chart bazi.Chart) error {
	names := [4]string{"year", "month", "day", "hour"}
	for i, p := range chart.Pillars() {
		if !p.Valid() {
			return fmt.Errorf("%w: %s pillar %q", ErrInvalidChart, names[i], p.String())
		}
	}
	return nil
}

// forward relays chat events to out through handle until the stream ends.
// handle returns false when the consumer has gone away.
func forward(ctx context.Context, events <-chan chat.Event, handle func(chat.Event) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || !handle(ev) {
				return
			}
		}
	}
}

// deliver sends v on ch unless ctx is done first.
func deliver[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
