package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/reportbridge/internal/usecase"
)

// ToolRegistrar is the part of the MCP server the report tools need.
type ToolRegistrar interface {
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
}

// ToolName returns the MCP tool name of a report.
func ToolName(report string) string {
	return "report_" + strings.ReplaceAll(report, "-", "_")
}

// Register adds one tool per built-in report to srv and returns the
// registered tool names.
func Register(srv ToolRegistrar, reports *usecase.ReportService, logger *slog.Logger) []string {
	logger = logger.With("component", "mcp_tools")

	var names []string
	for _, report := range reports.Reports() {
		tool := mcp.NewTool(ToolName(report.Name),
			mcp.WithDescription(report.Description+". Returns the report rows as a JSON array."),
			mcp.WithString("date_from", mcp.Description("Start date, YYYY-MM-DD")),
			mcp.WithString("date_to", mcp.Description("End date, YYYY-MM-DD")),
			mcp.WithString("cashier", mcp.Description("Cashier name")),
			mcp.WithString("status", mcp.Description("Document status")),
		)
		srv.AddTool(tool, Handler(reports, report.Name, logger))
		names = append(names, tool.Name)
		logger.Debug("Registered report tool", slog.String("tool", tool.Name))
	}
	logger.Info("Registered report tools", slog.Int("count", len(names)))
	return names
}

// Handler returns the MCP handler that runs the named report. Report
// failures become tool errors; they are not protocol errors.
func Handler(reports *usecase.ReportService, name string, logger *slog.Logger) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		filter := usecase.ReportFilter{
			DateFrom: stringArg(args, "date_from"),
			DateTo:   stringArg(args, "date_to"),
			Cashier:  stringArg(args, "cashier"),
			Status:   stringArg(args, "status"),
		}

		log := logger.With(slog.String("report", name))
		log.Info("Tool call received", slog.Any("filter", filter))

		rows, err := reports.Run(ctx, name, filter)
		if err != nil {
			log.Error("Report tool failed", slog.Any("error", err))
			return mcp.NewToolResultError(fmt.Sprintf("report %s failed: %v", name, err)), nil
		}

		out, err := json.Marshal(rows)
		if err != nil {
			log.Error("Failed to encode report rows", slog.Any("error", err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode rows: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
