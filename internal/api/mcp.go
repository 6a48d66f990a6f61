package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tamilsm/TranscriptAnalysis/internal/ingest"
	"github.com/tamilsm/TranscriptAnalysis/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
	Agent Asker
}

// NewMCPServer creates an MCP server exposing the analytics agent and the
// conversation store as tools for MCP-speaking clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"tca",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("tca — transcript analytics: annotate support-call transcripts and answer questions about the resulting conversation records."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_analytics",
			mcp.WithDescription("Ask a natural-language question about analyzed conversations (sentiment, emotions, topics, resolution rates). Returns a summary, and for data questions the SQL used and the result rows."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpAskAnalytics(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_transcript",
			mcp.WithDescription("Queue a call transcript for emotion and topic annotation. Returns the transcript id; results land in the conversation store once processed."),
			mcp.WithString("content", mcp.Description("The raw transcript text"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Optional stable id; generated when omitted")),
			mcp.WithString("user_id", mcp.Description("Optional customer identifier")),
			mcp.WithString("date", mcp.Description("Call date, YYYY-MM-DD")),
		),
		mcpAnalyzeTranscript(deps),
	)

	s.AddTool(
		mcp.NewTool("get_conversation",
			mcp.WithDescription("Fetch one analyzed conversation record by id."),
			mcp.WithString("conversation_id", mcp.Description("The conversation id"), mcp.Required()),
		),
		mcpGetConversation(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"conversations://recent",
			"Recent Conversations",
			mcp.WithResourceDescription("Last 10 analyzed conversations (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAskAnalytics(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		answer, err := deps.Agent.Ask(ctx, question)
		if err != nil {
			return mcpError(fmt.Sprintf("analytics query failed: %v", err)), nil
		}

		b, err := json.Marshal(answer)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAnalyzeTranscript(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		id := req.GetString("conversation_id", "")
		if id == "" {
			id = uuid.New().String()
		}

		t := storage.Transcript{
			ID:        id,
			UserID:    req.GetString("user_id", ""),
			Date:      req.GetString("date", ""),
			Content:   content,
			Status:    storage.TranscriptPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveTranscript(t); err != nil {
			return mcpError(fmt.Sprintf("failed to save transcript: %v", err)), nil
		}

		payload, err := json.Marshal(ingest.Payload{TranscriptID: id})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal job payload: %v", err)), nil
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobType,
			PayloadJSON: string(payload),
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			return mcpError(fmt.Sprintf("saved transcript but failed to queue annotation: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Queued transcript %s for annotation", id)), nil
	}
}

func mcpGetConversation(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}

		c, err := deps.Store.GetConversation(id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("conversation %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get conversation: %v", err)), nil
		}

		b, err := json.Marshal(c)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal conversation: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		conversations, err := deps.Store.ListConversations(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}

		type conversationSummary struct {
			ConversationID   string   `json:"conversation_id"`
			Date             string   `json:"date"`
			Sentiment        string   `json:"customer_sentiment"`
			DominantEmotion  string   `json:"dominant_customer_emotion"`
			AngryTranscript  bool     `json:"angry_transcript"`
			ResolutionStatus string   `json:"resolution_status"`
			Topics           []string `json:"topics"`
		}

		summaries := make([]conversationSummary, len(conversations))
		for i, c := range conversations {
			summaries[i] = conversationSummary{
				ConversationID:   c.ConversationID,
				Date:             c.Date,
				Sentiment:        c.CustomerSentiment,
				DominantEmotion:  c.DominantCustomerEmotion,
				AngryTranscript:  c.AngryTranscript,
				ResolutionStatus: c.ResolutionStatus,
				Topics:           c.Topics,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal conversations: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
