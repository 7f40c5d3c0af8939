package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("history",
		mcp.WithDescription("List undo labels oldest first and redo labels next-redo first"),
	), s.handleHistory)
}

type historyState struct {
	Undo    []string `json:"undo"`
	Redo    []string `json:"redo"`
	CanUndo bool     `json:"canUndo"`
	CanRedo bool     `json:"canRedo"`
}

func (s *Server) historyState() historyState {
	undo, redo := s.session.HistoryLabels()
	if undo == nil {
		undo = []string{}
	}
	if redo == nil {
		redo = []string{}
	}
	return historyState{Undo: undo, Redo: redo, CanUndo: len(undo) > 0, CanRedo: len(redo) > 0}
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.Undo() {
		return textResult("Nothing to undo"), nil
	}
	return jsonResult(s.historyState())
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.Redo() {
		return textResult("Nothing to redo"), nil
	}
	return jsonResult(s.historyState())
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.historyState())
}
