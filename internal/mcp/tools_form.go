package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"exdform/internal/apperror"
	"exdform/internal/domain"
	"exdform/internal/export"
	"exdform/internal/form"
	"exdform/internal/schema"
)

func (s *Server) registerFormTools() {
	s.mcp.AddTool(mcp.NewTool("load_schema",
		mcp.WithDescription("Load the variable schema that defines the form. Give either a schema file path (.csv, .yaml, .json) or inline rows."),
		mcp.WithString("path", mcp.Description("Schema file path")),
		mcp.WithString("rows", mcp.Description("JSON array of rows [name, description, modalities, type, maxLength?]")),
	), s.handleLoadSchema)

	s.mcp.AddTool(mcp.NewTool("describe_form",
		mcp.WithDescription("Describe the fields of the loaded form: name, label, type, length limit and selectable options"),
	), s.handleDescribeForm)

	s.mcp.AddTool(mcp.NewTool("commit_record",
		mcp.WithDescription("Fill the form and save one record. Choice fields take a code or label; multiselects take a list of labels (prefix '!' for an explicit no). Omitted fields keep their defaults."),
		mcp.WithString("values", mcp.Description("JSON object {variableName: value, ...}"), mcp.Required()),
	), s.handleCommitRecord)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List stored records in insertion order"),
		mcp.WithNumber("limit", mcp.Description("Return only the last N records (optional)")),
	), s.handleListRecords)

	s.mcp.AddTool(mcp.NewTool("export_csv",
		mcp.WithDescription("Export all records as CSV. Writes to path when given, otherwise returns the CSV text."),
		mcp.WithString("path", mcp.Description("Output file path (optional)")),
	), s.handleExportCSV)

	s.mcp.AddTool(mcp.NewTool("analysis_report",
		mcp.WithDescription("Build the exploratory analysis report: missing data, numeric series and summary"),
		mcp.WithString("format", mcp.Description("'text' for the summary only, 'json' for the full report (default)")),
	), s.handleAnalysisReport)

	s.mcp.AddTool(mcp.NewTool("reset_store",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete every stored record. Requires confirm=true."),
		mcp.WithBoolean("confirm", mcp.Description("Must be true to proceed"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleResetStore)
}

func (s *Server) handleLoadSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path := stringArg(args, "path")
	rowsJSON := stringArg(args, "rows")

	return s.locked(func() (*mcp.CallToolResult, error) {
		switch {
		case path != "":
			st, err := s.form.LoadSchemaFile(ctx, path)
			if err != nil {
				return s.errorResult(ctx, "load_schema", err)
			}
			return jsonResult(st)
		case rowsJSON != "":
			var rows []schema.Row
			if err := parseJSON(rowsJSON, &rows); err != nil {
				return s.errorResult(ctx, "load_schema", apperror.NewValidation("rows must be a JSON array of string arrays").WithCause(err))
			}
			st, err := s.form.LoadSchemaRows(ctx, rows)
			if err != nil {
				return s.errorResult(ctx, "load_schema", err)
			}
			return jsonResult(st)
		default:
			return s.errorResult(ctx, "load_schema", apperror.NewValidation("path or rows is required"))
		}
	})
}

// fieldInfo is the agent-facing description of one field.
type fieldInfo struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"`
	MaxLength int      `json:"maxLength,omitempty"`
	Options   []string `json:"options,omitempty"`
	Default   string   `json:"default,omitempty"`
	Keys      []string `json:"keys"`
}

func describeField(f form.Field) fieldInfo {
	v := f.Variable()
	info := fieldInfo{
		Name:      v.Name(),
		Label:     v.Label(),
		Type:      string(v.Type()),
		MaxLength: v.MaxLength(),
		Keys:      v.Keys(),
	}
	switch f := f.(type) {
	case *form.ChoiceField:
		for _, o := range f.Options() {
			if o.Label != "" {
				info.Options = append(info.Options, o.Label)
			}
		}
		info.Default = f.Value().Text()
	case *form.MultiChoiceField:
		for _, m := range v.Modalities() {
			info.Options = append(info.Options, fmt.Sprintf("%d - %s", m.Code, m.Label))
		}
	case *form.DateField:
		info.Default = f.Text()
	}
	return info
}

func (s *Server) handleDescribeForm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.locked(func() (*mcp.CallToolResult, error) {
		session := s.form.Session()
		if session.State() == form.StateEmpty {
			return s.errorResult(ctx, "describe_form", apperror.NewPrecondition("no schema loaded").WithCause(form.ErrNoSchema))
		}
		fields := session.Fields()
		out := make([]fieldInfo, 0, len(fields))
		for _, f := range fields {
			out = append(out, describeField(f))
		}
		return jsonResult(map[string]any{
			"fields":     out,
			"collisions": session.Collisions(),
		})
	})
}

func (s *Server) handleCommitRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	values, err := valuesArg(req.GetArguments(), "values")
	if err != nil {
		return s.errorResult(ctx, "commit_record", apperror.NewValidation(err.Error()))
	}
	return s.locked(func() (*mcp.CallToolResult, error) {
		id, err := s.form.CommitValues(ctx, values)
		if err != nil {
			return s.errorResult(ctx, "commit_record", err)
		}
		return jsonResult(map[string]any{"id": id, "message": fmt.Sprintf("Record saved with ID %d", id)})
	})
}

func (s *Server) handleListRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, _ := req.GetArguments()["limit"].(float64)
	return s.locked(func() (*mcp.CallToolResult, error) {
		recs, err := s.form.Records(ctx)
		if err != nil {
			return s.errorResult(ctx, "list_records", err)
		}
		if n := int(limit); n > 0 && n < len(recs) {
			recs = recs[len(recs)-n:]
		}
		if recs == nil {
			recs = []domain.StoredRecord{}
		}
		return jsonResult(recs)
	})
}

func (s *Server) handleExportCSV(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := stringArg(req.GetArguments(), "path")
	return s.locked(func() (*mcp.CallToolResult, error) {
		if path != "" {
			res, err := s.form.Export(ctx, path)
			if err != nil {
				return s.errorResult(ctx, "export_csv", err)
			}
			return jsonResult(res)
		}
		table, err := s.form.ExportTable(ctx)
		if err != nil {
			return s.errorResult(ctx, "export_csv", err)
		}
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, table); err != nil {
			return s.errorResult(ctx, "export_csv", apperror.NewInternal(err))
		}
		return textResult(buf.String()), nil
	})
}

func (s *Server) handleAnalysisReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := stringArg(req.GetArguments(), "format")
	return s.locked(func() (*mcp.CallToolResult, error) {
		report, err := s.form.Report(ctx)
		if err != nil {
			return s.errorResult(ctx, "analysis_report", err)
		}
		if format == "text" {
			return textResult(report.Summary), nil
		}
		return jsonResult(report)
	})
}

func (s *Server) handleResetStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, _ := req.GetArguments()["confirm"].(bool)
	if !confirm {
		return s.errorResult(ctx, "reset_store", apperror.NewValidation("confirm must be true to delete all records"))
	}
	return s.locked(func() (*mcp.CallToolResult, error) {
		if err := s.form.Reset(ctx); err != nil {
			return s.errorResult(ctx, "reset_store", err)
		}
		return textResult("Database has been reset"), nil
	})
}
