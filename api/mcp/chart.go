package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/eventstream"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
)

var (
	chartToolName    = "chart"
	chartDescription = "Compute the four pillars (year, month, day, hour stem-branch pairs), lunar date and life decades for a birth time."

	analyzeToolName    = "analyze"
	analyzeDescription = "Write a narrative reading of a birth chart. Optionally answer a specific question about it. Returns the model reasoning and the answer."

	mindmapToolName    = "mindmap"
	mindmapDescription = "Produce a markdown mind map summarising a birth chart."
)

// BirthInput identifies a birth for every chart tool.
type BirthInput struct {
	Birth  string `json:"birth" jsonschema:"birth time as YYYY-MM-DD HH:MM in Beijing time, or RFC 3339"`
	Gender string `json:"gender" jsonschema:"male or female"`
}

// AnalyzeInput is the input of the analyze tool.
type AnalyzeInput struct {
	BirthInput
	Question string `json:"question,omitempty" jsonschema:"optional follow-up question about the chart"`
}

// AnalyzeOutput is the output of the analyze tool.
type AnalyzeOutput struct {
	Pillars  []string `json:"pillars"`
	Thinking string   `json:"thinking,omitempty"`
	Answer   string   `json:"answer"`
}

// MindmapOutput is the output of the mindmap tool.
type MindmapOutput struct {
	Pillars  []string `json:"pillars"`
	Markdown string   `json:"markdown"`
}

type resolved struct {
	birth   time.Time
	gender  bazi.Gender
	chart   bazi.Chart
	summary reading.ChartSummary
}

func (s *Server) resolve(ctx context.Context, in BirthInput) (resolved, *mcp.CallToolResult) {
	birth, err := bazi.ParseBirth(in.Birth)
	if err != nil {
		return resolved{}, toolError(err.Error())
	}
	gender, err := bazi.ParseGender(in.Gender)
	if err != nil {
		return resolved{}, toolError(err.Error())
	}

	chart, res, err := reading.ChartFor(ctx, s.config.Calendar, birth)
	if err != nil {
		s.config.Logger.Error("MCP chart lookup failed", "error", err)
		return resolved{}, toolError(fmt.Sprintf("Failed to compute chart: %v", err))
	}

	return resolved{
		birth:   birth,
		gender:  gender,
		chart:   chart,
		summary: reading.Summarize(chart, res, gender),
	}, nil
}

// handleChart computes a chart.
func (s *Server) handleChart(ctx context.Context, _ *mcp.CallToolRequest, input BirthInput) (*mcp.CallToolResult, reading.ChartSummary, error) {
	s.config.Logger.Debug("MCP chart request", "birth", input.Birth)

	r, failed := s.resolve(ctx, input)
	if failed != nil {
		return failed, reading.ChartSummary{}, nil
	}

	return nil, r.summary, nil
}

// handleAnalyze runs an analysis to completion.
func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	r, failed := s.resolve(ctx, input.BirthInput)
	if failed != nil {
		return failed, AnalyzeOutput{}, nil
	}

	req := reading.AnalysisRequest{Chart: r.chart, Gender: r.gender}
	question := reading.InitialQuestion
	if input.Question != "" {
		// A standalone question is sent as a one-turn follow-up.
		question = input.Question
		req.History = []llm.Message{llm.User(input.Question)}
		req.Question = input.Question
	}

	started := time.Now().UTC()
	updates, err := s.config.Analyzer.Analyze(ctx, req)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to start analysis: %v", err)), AnalyzeOutput{}, nil
	}

	thought, answer, err := reading.Collect(updates)
	if err != nil {
		return toolError(fmt.Sprintf("Analysis failed: %v", err)), AnalyzeOutput{}, nil
	}

	s.archive(started, storage.Reading{
		Kind:     storage.KindAnalysis,
		Birth:    r.birth,
		Gender:   r.gender,
		Chart:    r.chart,
		Model:    s.config.Analyzer.ModelName(),
		Question: question,
		Thinking: thought,
		Content:  answer,
	})

	return nil, AnalyzeOutput{Pillars: r.summary.Pillars, Thinking: thought, Answer: answer}, nil
}

// handleMindmap runs a mind map to completion.
func (s *Server) handleMindmap(ctx context.Context, _ *mcp.CallToolRequest, input BirthInput) (*mcp.CallToolResult, MindmapOutput, error) {
	r, failed := s.resolve(ctx, input)
	if failed != nil {
		return failed, MindmapOutput{}, nil
	}

	started := time.Now().UTC()
	updates, err := s.config.Mindmapper.Generate(ctx, r.chart, r.gender)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to start mind map: %v", err)), MindmapOutput{}, nil
	}

	markdown, err := reading.CollectMarkdown(updates)
	if err != nil {
		return toolError(fmt.Sprintf("Mind map failed: %v", err)), MindmapOutput{}, nil
	}

	s.archive(started, storage.Reading{
		Kind:    storage.KindMindmap,
		Birth:   r.birth,
		Gender:  r.gender,
		Chart:   r.chart,
		Model:   s.config.Mindmapper.ModelName(),
		Content: markdown,
	})

	return nil, MindmapOutput{Pillars: r.summary.Pillars, Markdown: markdown}, nil
}

func (s *Server) archive(started time.Time, r storage.Reading) {
	if s.config.Archive == nil {
		return
	}

	r.ID = uuid.NewString()
	r.CreatedAt = started
	s.config.Archive.Enqueue(archive.Job{
		Surface: "mcp",
		Meta: eventstream.RequestMeta{
			StartedAt:   started,
			CompletedAt: time.Now().UTC(),
		},
		Reading: r,
	})
}
