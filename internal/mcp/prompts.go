package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("enter_records",
		mcp.WithPromptDescription("Guide through entering records from a source document into the loaded form"),
		mcp.WithArgument("source",
			mcp.ArgumentDescription("Where the data comes from (file, transcript, table)"),
			mcp.RequiredArgument(),
		),
	), s.handleEnterRecordsPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_data_quality",
		mcp.WithPromptDescription("Review missing data and numeric distributions of the stored records"),
	), s.handleReviewPrompt)
}

func (s *Server) handleEnterRecordsPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	source := req.Params.Arguments["source"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Enter records from: %s", source),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Enter the records found in "%s". Follow these steps:

1. Call describe_form to learn each field's type, options and length limit
2. For each record, call commit_record with a values object keyed by field name
   - Numbers use '.' as decimal separator; discrete numbers must be whole
   - Choice fields take the option code or label
   - Multiselects take a list of labels; prefix '!' to record an explicit no
   - Dates use yyyy-mm-dd
3. If commit_record reports VALIDATION_ERROR, fix the listed fields and retry
4. Finish with list_records to confirm what was saved`, source),
				},
			},
		},
	}, nil
}

func (s *Server) handleReviewPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Review data quality",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Review the quality of the stored records:

1. Call analysis_report with format "json"
2. List variables with more than 20% missing data
3. For each numeric series with stats, comment on range and spread and flag implausible values
4. Suggest which records (by id) should be re-checked`,
				},
			},
		},
	}, nil
}
