package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/TaskOrbit/internal/tools"
)

// registerResources registers the read-only task list resources. Both are
// views over the same list tool the chat orchestrator calls.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"taskorbit://tasks",
			"Task List",
			mcplib.WithResourceDescription("All tasks on the service user's list"),
			mcplib.WithMIMEType("application/json"),
		),
		s.taskListResource(nil),
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"taskorbit://tasks/pending",
			"Pending Tasks",
			mcplib.WithResourceDescription("Tasks on the service user's list that are not completed yet"),
			mcplib.WithMIMEType("application/json"),
		),
		s.taskListResource(json.RawMessage(`{"status":"pending"}`)),
	)
}

func (s *Server) taskListResource(args json.RawMessage) func(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return func(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		if s.deps.Tools == nil {
			return jsonContents(req.Params.URI, map[string]any{"error": "task tools not configured"})
		}
		return jsonContents(req.Params.URI, s.deps.Tools.Execute(ctx, s.cfg.UserID, tools.ToolListTasks, args))
	}
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
