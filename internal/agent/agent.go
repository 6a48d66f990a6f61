// Package agent implements the analytics query pipeline: route, generate
// SQL, gate, execute, shape, summarize. The model-driven steps are treated
// as untrusted external functions — every output is validated or clamped
// before it can touch data.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

// Answer is the final response to one analytics question.
type Answer struct {
	Route   string       `json:"route"`
	SQL     string       `json:"sql,omitempty"`
	Result  *QueryResult `json:"result,omitempty"`
	Summary string       `json:"summary"`
}

// Agent orchestrates the query pipeline. One instance serves one question
// at a time; concurrent use is safe because all state is per-call.
type Agent struct {
	router     *Router
	generator  *Generator
	gate       *Gate
	summarizer *Summarizer
	client     Chatter
	fastModel  string
	maxRows    int
}

// New wires the pipeline. maxRows <= 0 falls back to DefaultMaxRows.
func New(client Chatter, gate *Gate, fastModel, sqlModel, summaryModel string, maxRows int) *Agent {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Agent{
		router:     NewRouter(client, fastModel),
		generator:  NewGenerator(client, sqlModel),
		gate:       gate,
		summarizer: NewSummarizer(client, summaryModel),
		client:     client,
		fastModel:  fastModel,
		maxRows:    maxRows,
	}
}

// Ask answers one natural-language question. Questions routed GENERAL get a
// direct model answer; SQL questions run the full generate→gate→execute→
// summarize chain. A *ForbiddenStatementError or *QueryExecutionError from
// the gate is returned to the caller — the SQL path fails closed, never
// degrading into executing anything else.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	route, err := a.router.Route(ctx, question)
	if err != nil {
		var routerErr *RouterError
		if errors.As(err, &routerErr) {
			slog.Warn("router output ambiguous, falling back to GENERAL", "raw", routerErr.Raw)
		} else {
			slog.Warn("routing failed, falling back to GENERAL", "error", err)
		}
		route = RouteGeneral
	}

	if route == RouteGeneral {
		summary, err := a.generalAnswer(ctx, question)
		if err != nil {
			return nil, err
		}
		return &Answer{Route: string(RouteGeneral), Summary: summary}, nil
	}

	stmt, err := a.generator.Generate(ctx, question)
	if err != nil {
		return nil, err
	}

	result, err := a.gate.Run(ctx, stmt, a.maxRows)
	if err != nil {
		return nil, err
	}

	payload, err := ShapeResult(result)
	if err != nil {
		return nil, err
	}

	summary, err := a.summarizer.Summarize(ctx, question, stmt, payload)
	if err != nil {
		// The data came back fine; degrade to the raw payload rather than
		// failing the whole question on a summarizer hiccup.
		slog.Warn("summarization failed, returning raw results", "error", err)
		summary = fmt.Sprintf("Query returned %d of %d matching rows: %s",
			result.ReturnedRows, result.RowCount, payload)
	}

	return &Answer{
		Route:   string(RouteSQL),
		SQL:     stmt,
		Result:  result,
		Summary: summary,
	}, nil
}

func (a *Agent) generalAnswer(ctx context.Context, question string) (string, error) {
	messages := []ollama.Message{
		{Role: "system", Content: generalSystemPrompt},
		{Role: "user", Content: question},
	}
	answer, err := a.client.Chat(ctx, a.fastModel, messages, nil)
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}
	return answer, nil
}
