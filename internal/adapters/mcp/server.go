// Package mcpadapter exposes the stateless QC engine as MCP tools.
package mcpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
)

const (
	toolReconcileDefects = "reconcile_defects"
	toolEvaluateLot      = "evaluate_lot"
	toolLookupPlan       = "lookup_plan"
)

type Server struct {
	qc  ports.QCService
	mcp *server.MCPServer
}

func NewServer(qc ports.QCService, version string) *Server {
	s := &Server{
		qc:  qc,
		mcp: server.NewMCPServer("footwear-qc", version, server.WithToolCapabilities(false), server.WithRecovery()),
	}

	stringList := mcp.Items(map[string]any{"type": "string"})
	s.mcp.AddTool(mcp.NewTool(toolReconcileDefects,
		mcp.WithDescription("Normalize, deduplicate and cross-suppress critical, major and minor defect descriptions."),
		mcp.WithArray("critical", mcp.Description("Critical defect descriptions"), stringList),
		mcp.WithArray("major", mcp.Description("Major defect descriptions"), stringList),
		mcp.WithArray("minor", mcp.Description("Minor defect descriptions"), stringList),
	), s.handleReconcile)

	s.mcp.AddTool(mcp.NewTool(toolEvaluateLot,
		mcp.WithDescription("Decide ACCEPT, REWORK or REJECT for a lot from its order quantity and defect counts under AQL 2.5."),
		mcp.WithString("order_quantity", mcp.Required(), mcp.Description("Order quantity; free text such as \"1,200\" is accepted")),
		mcp.WithNumber("critical", mcp.Description("Critical defect count")),
		mcp.WithNumber("major", mcp.Description("Major defect count")),
		mcp.WithNumber("minor", mcp.Description("Minor defect count")),
	), s.handleEvaluate)

	s.mcp.AddTool(mcp.NewTool(toolLookupPlan,
		mcp.WithDescription("Return the AQL sampling plan row (sample size and acceptance limits) for an order quantity."),
		mcp.WithString("order_quantity", mcp.Required(), mcp.Description("Order quantity")),
	), s.handleLookupPlan)

	return s
}

// MCPServer returns the underlying server for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleReconcile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args defects.RawDefects
	if err := bindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := s.qc.ReconcileDefects(args)
	return jsonResult(map[string]any{
		"critical": nonNil(out.Critical),
		"major":    nonNil(out.Major),
		"minor":    nonNil(out.Minor),
		"counts":   out.Counts(),
	})
}

type evaluateArgs struct {
	OrderQuantity json.RawMessage `json:"order_quantity"`
	Critical      int             `json:"critical"`
	Major         int             `json:"major"`
	Minor         int             `json:"minor"`
}

func (s *Server) handleEvaluate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args evaluateArgs
	if err := bindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	verdict, err := s.qc.EvaluateLot(quantityText(args.OrderQuantity), domain.DefectCounts{
		Critical: args.Critical,
		Major:    args.Major,
		Minor:    args.Minor,
	})
	if err != nil {
		slog.Warn("mcp_tool_error", "tool", toolEvaluateLot, "error", err.Error())
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(verdict)
}

type lookupArgs struct {
	OrderQuantity json.RawMessage `json:"order_quantity"`
}

func (s *Server) handleLookupPlan(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args lookupArgs
	if err := bindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, parsed := s.qc.LookupPlan(quantityText(args.OrderQuantity))
	return jsonResult(map[string]any{
		"row":               row,
		"sample_size":       row.SampleSizeLabel(),
		"limits":            row.Limits(),
		"quantity_fallback": !parsed,
	})
}

func bindArguments(req mcp.CallToolRequest, target any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// quantityText accepts a JSON string or number and returns the raw text.
func quantityText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
