package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	schemaURI  = "exdform://schema"
	summaryURI = "exdform://report/summary"
)

func (s *Server) registerResources() {
	// ── exdform://schema ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		schemaURI,
		"Loaded Form Schema",
		mcp.WithMIMEType("application/json"),
	), s.handleSchemaResource)

	// ── exdform://report/summary ───────────────────────
	s.mcp.AddResource(mcp.NewResource(
		summaryURI,
		"Analysis Summary",
		mcp.WithMIMEType("text/plain"),
	), s.handleSummaryResource)
}

func (s *Server) handleSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.mu.Lock()
	fields := s.form.Session().Fields()
	out := make([]fieldInfo, 0, len(fields))
	for _, f := range fields {
		out = append(out, describeField(f))
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSummaryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.mu.Lock()
	report, err := s.form.Report(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      summaryURI,
			MIMEType: "text/plain",
			Text:     report.Summary,
		},
	}, nil
}
