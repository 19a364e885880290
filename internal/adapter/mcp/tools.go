package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/TaskOrbit/internal/tools"
)

// registerTools registers the five task tools on the server. The
// declarations mirror the registry's schemas; execution goes through the
// same registry the chat orchestrator uses.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.addTaskTool(),
		s.listTasksTool(),
		s.completeTaskTool(),
		s.updateTaskTool(),
		s.deleteTaskTool(),
	)
}

func (s *Server) addTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(tools.ToolAddTask,
		mcplib.WithDescription("Create a new task on the service user's todo list"),
		mcplib.WithString("title",
			mcplib.Required(),
			mcplib.Description("Short title of the task"),
		),
		mcplib.WithString("description",
			mcplib.Description("Optional longer description"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleAddTask,
	}
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(tools.ToolListTasks,
		mcplib.WithDescription("List tasks, optionally filtered by status"),
		mcplib.WithString("status",
			mcplib.Description("Filter by status; omit or use 'all' for every task"),
			mcplib.Enum("pending", "completed", "all"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListTasks,
	}
}

func (s *Server) completeTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(tools.ToolCompleteTask,
		mcplib.WithDescription("Mark a task as completed by its ID"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("ID of the task to complete"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleCompleteTask,
	}
}

func (s *Server) updateTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(tools.ToolUpdateTask,
		mcplib.WithDescription("Change a task's title or description by its ID"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("ID of the task to update"),
		),
		mcplib.WithString("title",
			mcplib.Description("New title"),
		),
		mcplib.WithString("description",
			mcplib.Description("New description"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleUpdateTask,
	}
}

func (s *Server) deleteTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(tools.ToolDeleteTask,
		mcplib.WithDescription("Delete a task from the list by its ID"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("ID of the task to delete"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleDeleteTask,
	}
}

func (s *Server) handleAddTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.execute(ctx, tools.ToolAddTask, req)
}

func (s *Server) handleListTasks(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.execute(ctx, tools.ToolListTasks, req)
}

func (s *Server) handleCompleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.execute(ctx, tools.ToolCompleteTask, req)
}

func (s *Server) handleUpdateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.execute(ctx, tools.ToolUpdateTask, req)
}

func (s *Server) handleDeleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.execute(ctx, tools.ToolDeleteTask, req)
}

// execute runs the named tool through the registry under the configured
// service identity. The registry reports domain failures as payloads
// with an "error" key; those become MCP error results rather than Go
// errors so clients see the reason.
func (s *Server) execute(ctx context.Context, name string, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tools == nil {
		return mcplib.NewToolResultError("task tools not configured"), nil
	}

	args, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to encode arguments", err), nil
	}

	result := s.deps.Tools.Execute(ctx, s.cfg.UserID, name, args)

	data, err := json.Marshal(result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	if _, failed := result["error"]; failed {
		return mcplib.NewToolResultError(string(data)), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
