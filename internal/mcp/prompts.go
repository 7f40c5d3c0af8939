package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through blocking out a landing page: header, hero, feature cards and footer"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the page is about"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_layout",
		mcp.WithPromptDescription("Analyze the current page and suggest fixes before export"),
	), s.handleReviewLayoutPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("export_site",
		mcp.WithPromptDescription("Analyze, check and export the page as a static site archive"),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Archive path, e.g. site.zip"),
		),
	), s.handleExportSitePrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return userPrompt(
		fmt.Sprintf("Block out a landing page for: %s", topic),
		fmt.Sprintf(`Block out a landing page about "%s" on a 1440 wide canvas. Follow these steps:

1. add_element a full-width header (1440 x 80) at (0, 0) named "Header" with the site name as text
2. add_element a hero (1440 x 480) at (0, 80) named "Hero" with a headline about %s
3. add_element a section (1440 x 520) at (0, 560) named "Features"
4. Inside the section, add three cards of equal size in one row, then use arrange_elements to space them evenly
5. add_element a footer (1440 x 120) at the bottom named "Footer"
6. Run analyze_layout and check that the header, hero, cards and footer got the expected roles

Keep siblings aligned; use move_element with snap=true to line edges up.`, topic, topic),
	), nil
}

func (s *Server) handleReviewLayoutPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Review the current layout",
		`Review the page before export:

1. Run validate_project and stop if the tree is invalid
2. Run analyze_layout with format yaml and read the tree summary
3. Look for elements with role "block" that should be sections or cards, children that overflow their container, and rows whose spacing is uneven
4. Propose concrete fixes as move_element, resize_element or reparent_element calls, and apply them only after confirming`,
	), nil
}

func (s *Server) handleExportSitePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := req.Params.Arguments["path"]
	if path == "" {
		path = "site.zip"
	}
	return userPrompt(
		fmt.Sprintf("Export the page to %s", path),
		fmt.Sprintf(`Export the page as a static site:

1. Run validate_project
2. Run analyze_layout so every element has a role, tag and class
3. Use preview_export on index.html and style.css and check the structure reads well
4. Call export_page with path "%s"
5. Save the project with save_project so the exported state is recorded as a revision`, path),
	), nil
}
