// Package mcpserver exposes the data tools over the Model Context Protocol
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/WilliamSuiself/remote-mcp-local/internal/tools"
)

const (
	// ServerName is reported to MCP clients during initialization
	ServerName = "remote-mcp"

	// ServerVersion is reported to MCP clients during initialization
	ServerVersion = "1.0.0"
)

// Tool names
const (
	ToolAdd         = "add"
	ToolGetNews     = "getNews"
	ToolGetTimezone = "getTimezone"
)

// NewsSource provides headlines by category
type NewsSource interface {
	Headlines(ctx context.Context, newsType string) ([]tools.NewsItem, error)
}

// ZoneSource provides time zones by region
type ZoneSource interface {
	Zones(ctx context.Context, region string) ([]tools.Zone, error)
}

// Recorder receives tool invocation metrics
type Recorder interface {
	ObserveToolCall(tool, status string, start time.Time)
}

// Config configures the MCP server
type Config struct {
	News     NewsSource
	Zones    ZoneSource
	Recorder Recorder
	Logger   *slog.Logger
}

// AddInput holds the operands of the add tool
type AddInput struct {
	A float64 `json:"a" jsonschema:"first operand"`
	B float64 `json:"b" jsonschema:"second operand"`
}

// NewsInput selects a headline category
type NewsInput struct {
	Type string `json:"type,omitempty"`
}

// TimezoneInput selects a world region
type TimezoneInput struct {
	Region string `json:"region,omitempty"`
}

// Descriptions lists the tools for display on the home page
var Descriptions = []struct {
	Name        string
	Description string
}{
	{ToolAdd, "Add two numbers"},
	{ToolGetNews, "Fetch news headlines by category"},
	{ToolGetTimezone, "List time zones of a world region"},
}

type handlers struct {
	news     NewsSource
	zones    ZoneSource
	recorder Recorder
	logger   *slog.Logger
}

// New creates an MCP server with all tools registered
func New(cfg Config) *mcp.Server {
	h := &handlers{
		news:     cfg.News,
		zones:    cfg.Zones,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAdd,
		Description: Descriptions[0].Description,
	}, h.add)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetNews,
		Description: Descriptions[1].Description,
		InputSchema: choiceSchema("type", "News category", tools.NewsTypes, tools.DefaultNewsType),
	}, h.getNews)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetTimezone,
		Description: Descriptions[2].Description,
		InputSchema: choiceSchema("region", "World region", tools.Regions, tools.DefaultRegion),
	}, h.getTimezone)

	return server
}

// Handler serves server over the streamable HTTP transport
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

// choiceSchema describes an object with one optional string property drawn
// from a closed set. The set is only listed in the description; the tool
// itself reports values outside it.
func choiceSchema(property, description string, choices []string, def string) *jsonschema.Schema {
	defJSON, _ := json.Marshal(def)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			property: {
				Type:        "string",
				Description: fmt.Sprintf("%s: %s (default %s)", description, strings.Join(choices, ", "), def),
				Default:     defJSON,
			},
		},
	}
}

func (h *handlers) add(ctx context.Context, _ *mcp.CallToolRequest, in AddInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	h.record(ToolAdd, "ok", start)
	return textResult(strconv.FormatFloat(in.A+in.B, 'f', -1, 64)), nil, nil
}

func (h *handlers) getNews(ctx context.Context, _ *mcp.CallToolRequest, in NewsInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	items, err := h.news.Headlines(ctx, in.Type)
	if err != nil {
		h.logger.WarnContext(ctx, "news lookup failed", "type", in.Type, "error", err)
		h.record(ToolGetNews, "error", start)
		return errorResult("fetching news", err), nil, nil
	}
	h.record(ToolGetNews, "ok", start)
	return jsonResult(items)
}

func (h *handlers) getTimezone(ctx context.Context, _ *mcp.CallToolRequest, in TimezoneInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	zones, err := h.zones.Zones(ctx, in.Region)
	if err != nil {
		h.logger.WarnContext(ctx, "timezone lookup failed", "region", in.Region, "error", err)
		h.record(ToolGetTimezone, "error", start)
		return errorResult("fetching time zones", err), nil, nil
	}
	h.record(ToolGetTimezone, "ok", start)
	return jsonResult(zones)
}

func (h *handlers) record(tool, status string, start time.Time) {
	if h.recorder != nil {
		h.recorder.ObserveToolCall(tool, status, start)
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(action string, err error) *mcp.CallToolResult {
	res := textResult(fmt.Sprintf("Error %s: %v", action, err))
	res.IsError = true
	return res
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return textResult(string(b)), nil, nil
}
