// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes IATF document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/winds-ai/iatf/internal/document"
	"github.com/winds-ai/iatf/internal/storage"
	"github.com/winds-ai/iatf/internal/validate"
)

// Server wraps the MCP server with IATF tools. Every tool re-reads its
// document from disk, so concurrent editors always see fresh state; no
// tool ever writes.
type Server struct {
	mcp *server.MCPServer
}

// New creates a new MCP server with all IATF tools registered.
func New() *Server {
	s := &Server{}

	s.mcp = server.NewMCPServer(
		"iatf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_index",
		mcp.WithDescription("Read the INDEX block of an IATF document: section ids, "+
			"titles, line ranges, summaries and staleness metadata. Cheap; call this "+
			"first to decide which sections to read."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the .iatf document")),
	), s.getIndex)

	s.mcp.AddTool(mcp.NewTool("read_section",
		mcp.WithDescription("Read one section of an IATF document by id or by title. "+
			"Titles match case-insensitively, exact match first, then substring."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the .iatf document")),
		mcp.WithString("id", mcp.Description("Section id as listed in the INDEX")),
		mcp.WithString("title", mcp.Description("Section title, used when id is not given")),
	), s.readSection)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Show which sections reference which, one line per section "+
			"in document order."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the .iatf document")),
		mcp.WithString("direction", mcp.Description("'outgoing' (default) or 'incoming'")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("validate_document",
		mcp.WithDescription("Run the full read-only validation battery on an IATF "+
			"document and return errors, warnings and passed checks."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the .iatf document")),
	), s.validateDocument)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the canonical IATF document format contract. "+
			"Call this before authoring IATF content to ensure correct structure."),
	), s.getFormatContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("iatf://format", "IATF Format Contract",
			mcp.WithResourceDescription("Canonical IATF document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func loadDocument(path string) (*document.Document, error) {
	raw, err := storage.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return document.Parse(raw), nil
}

func (s *Server) getIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := loadDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !doc.HasIndex() || !doc.HasContent() {
		return mcp.NewToolResultError(fmt.Sprintf("INDEX not generated for %s, run a rebuild first", path)), nil
	}
	lines, err := doc.IndexText()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := loadDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := ""
	if v, reqErr := req.RequireString("id"); reqErr == nil {
		id = v
	}
	if id == "" {
		title := ""
		if v, reqErr := req.RequireString("title"); reqErr == nil {
			title = v
		}
		if title == "" {
			return mcp.NewToolResultError("either id or title is required"), nil
		}
		id, err = doc.ResolveTitle(title)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	lines, err := doc.ReadSection(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction := "outgoing"
	if v, reqErr := req.RequireString("direction"); reqErr == nil && v != "" {
		direction = v
	}
	if direction != "outgoing" && direction != "incoming" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown direction: %s", direction)), nil
	}

	doc, err := loadDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !doc.HasContent() {
		return mcp.NewToolResultError(fmt.Sprintf("no %s section found", document.ContentMarker)), nil
	}
	if err := doc.ValidateNesting(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sections := doc.ParseSections()
	if len(sections) == 0 {
		return mcp.NewToolResultError("no sections found in CONTENT"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@graph: %s\n\n", filepath.Base(path))
	for _, line := range document.GraphLines(sections, doc.References(), direction == "incoming") {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) validateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := loadDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := validate.Check(doc)
	report := struct {
		Valid    bool     `json:"valid"`
		Errors   []string `json:"errors"`
		Warnings []string `json:"warnings"`
		Passed   []string `json:"passed"`
	}{
		Valid:    r.Valid(),
		Errors:   r.Errors,
		Warnings: r.Warnings,
		Passed:   r.Passed,
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFormatContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "iatf://format",
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
