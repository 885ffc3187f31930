package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/bazi/pkg/storage"
)

var (
	readingsToolName    = "readings"
	readingsDescription = "List archived readings newest first, or fetch one reading by id."
)

const defaultReadingsLimit = 10

// ReadingsInput is the input of the readings tool.
type ReadingsInput struct {
	ID    string `json:"id,omitempty" jsonschema:"fetch this reading only"`
	Kind  string `json:"kind,omitempty" jsonschema:"analysis or mindmap"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of readings to list, default 10"`
}

// ReadingsOutput is the output of the readings tool.
type ReadingsOutput struct {
	Readings []*storage.Reading `json:"readings"`
}

func (s *Server) handleReadings(ctx context.Context, _ *mcp.CallToolRequest, input ReadingsInput) (*mcp.CallToolResult, ReadingsOutput, error) {
	if input.ID != "" {
		r, err := s.config.Driver.Get(ctx, input.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				return toolError(err.Error()), ReadingsOutput{}, nil
			}
			s.config.Logger.Error("MCP reading lookup failed", "id", input.ID, "error", err)
			return toolError(fmt.Sprintf("Failed to load reading: %v", err)), ReadingsOutput{}, nil
		}
		return nil, ReadingsOutput{Readings: []*storage.Reading{r}}, nil
	}

	kind := storage.Kind(input.Kind)
	if kind != "" && kind != storage.KindAnalysis && kind != storage.KindMindmap {
		return toolError(fmt.Sprintf("unknown kind %q", input.Kind)), ReadingsOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultReadingsLimit
	}

	readings, err := s.config.Driver.List(ctx, storage.ListOptions{Kind: kind, Limit: limit})
	if err != nil {
		s.config.Logger.Error("MCP reading list failed", "error", err)
		return toolError(fmt.Sprintf("Failed to list readings: %v", err)), ReadingsOutput{}, nil
	}

	return nil, ReadingsOutput{Readings: readings}, nil
}
