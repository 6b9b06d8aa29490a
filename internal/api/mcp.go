package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/session"
	"github.com/kalambet/phoneadvisor/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Store    *storage.Store // optional; if nil, history://recent is not registered
}

// NewMCPServer creates an MCP server with the phone advisor tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"phoneadvisor",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("phoneadvisor: find phones in the catalog by price, RAM, storage, battery, brand and use case."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("extract_filters",
			mcp.WithDescription("Parse a free-text phone request into structured filter constraints without searching."),
			mcp.WithString("query", mcp.Description("Request such as 'gaming phone under ₹25000 with 8gb ram'"), mcp.Required()),
		),
		mcpExtractFilters(deps),
	)

	s.AddTool(
		mcp.NewTool("search_phones",
			mcp.WithDescription("Search the phone catalog with a free-text request in one step."),
			mcp.WithString("query", mcp.Description("Free-text request"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of phones returned (default 10)")),
		),
		mcpSearchPhones(deps),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Send one message to a phone advisor conversation. Omit session_id to start a new one."),
			mcp.WithString("message", mcp.Description("User message"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation id returned by a previous call")),
		),
		mcpChat(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"catalog://brands",
			"Catalog Brands",
			mcp.WithResourceDescription("Brands present in the phone catalog"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceBrands(deps),
	)

	if deps.Store != nil {
		s.AddResource(
			mcp.NewResource(
				"history://recent",
				"Recent Searches",
				mcp.WithResourceDescription("Last 10 executed searches"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecent(deps),
		)
	}

	return s
}

func mcpExtractFilters(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		b, err := json.Marshal(deps.Sessions.Extract(query))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal constraints: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchPhones(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		res, err := deps.Sessions.DirectSearch(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		total := len(res.Results)
		if total > limit {
			res.Results = res.Results[:limit]
		}

		b, err := json.Marshal(map[string]any{
			"constraints": res.Constraints,
			"summary":     nonNil(res.Summary),
			"total":       total,
			"results":     res.Results,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		id := req.GetString("session_id", "")
		if id == "" {
			id = deps.Sessions.Create()
		}

		turn, err := deps.Sessions.Send(ctx, id, message)
		if errors.Is(err, session.ErrSessionNotFound) {
			return mcpError(fmt.Sprintf("unknown or expired session %q; omit session_id to start a new one", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("chat failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"session_id":    id,
			"reply":         turn.Reply,
			"phase":         turn.Phase,
			"should_search": turn.ShouldSearch,
			"results":       turn.Results,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal turn: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceBrands(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(brandNames(deps.Catalog))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal brands: %w", err)
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

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		searches, err := deps.Store.ListSearches(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent searches: %w", err)
		}

		type searchSummary struct {
			ID          string `json:"id"`
			CreatedAt   string `json:"created_at"`
			Mode        string `json:"mode"`
			Query       string `json:"query"`
			ResultCount int    `json:"result_count"`
		}

		summaries := make([]searchSummary, len(searches))
		for i, s := range searches {
			summaries[i] = searchSummary{
				ID:          s.ID,
				CreatedAt:   s.CreatedAt.Format(time.RFC3339),
				Mode:        s.Mode,
				Query:       s.Query,
				ResultCount: s.ResultCount,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal searches: %w", err)
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
