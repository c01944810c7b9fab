// Package mcp provides the MCP (Model Context Protocol) server implementation.
//
// This package exposes the interactive editor session as tools an AI agent
// can call via the MCP protocol: starting and stopping a supervised Godot
// editor, sending commands over the live channel, and reading the captured
// editor output.
package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gdpilot/cli/internal/bridge"
)

// Server wraps the MCP server with the session bridge behind it.
type Server struct {
	mcpServer *mcp.Server
	manager   *bridge.Manager
	version   string
}

// NewServer creates a gdpilot MCP server driving the given session manager.
func NewServer(manager *bridge.Manager, version string) *Server {
	s := &Server{
		manager: manager,
		version: version,
	}

	s.mcpServer = mcp.NewServer(
		&mcp.Implementation{
			Name:    "gdpilot",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server over stdio and blocks until the client
// disconnects. Any session still running when the transport closes is torn
// down so the project is never left mutated.
func (s *Server) Run(ctx context.Context) error {
	err := s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	s.manager.Stop()
	return err
}

// registerTools registers the session tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_session",
		Description: "Start an interactive Godot editor session: injects a command listener into the project, launches the editor, and makes send_command available. Replaces any session already running.",
	}, s.handleStartSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "stop_session",
		Description: "Stop the interactive session: shuts down the editor and restores the project exactly as it was before start_session.",
	}, s.handleStopSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "send_command",
		Description: "Send one command to the running editor and return its JSON reply. Commands are serialized: one in flight at a time, replies in send order.",
	}, s.handleSendCommand)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_editor_output",
		Description: "Read the captured stdout/stderr of the supervised editor process. Available during and after a session.",
	}, s.handleGetEditorOutput)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_session_status",
		Description: "Report the session state: idle or running, process id, uptime, and whether the command channel is connected.",
	}, s.handleGetSessionStatus)
}

// StartSessionInput defines the input parameters for the start_session tool.
type StartSessionInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the Godot project directory (must contain project.godot)"`
	Scene       string `json:"scene,omitempty" jsonschema:"Optional scene to open (e.g. res://main.tscn)"`
}

// StartSessionOutput defines the output for the start_session tool.
type StartSessionOutput struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"session_id,omitempty"`
	Pid          int    `json:"pid,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// handleStartSession handles the start_session tool call.
func (s *Server) handleStartSession(ctx context.Context, req *mcp.CallToolRequest, input StartSessionInput) (*mcp.CallToolResult, StartSessionOutput, error) {
	if input.ProjectPath == "" {
		return nil, StartSessionOutput{
			Success:      false,
			ErrorMessage: "project_path is required",
		}, nil
	}

	if err := s.manager.Start(ctx, input.ProjectPath, input.Scene); err != nil {
		return nil, StartSessionOutput{Success: false, ErrorMessage: err.Error()}, nil
	}

	st := s.manager.Status()
	return nil, StartSessionOutput{
		Success:   true,
		SessionID: st.SessionID,
		Pid:       st.Pid,
	}, nil
}

// StopSessionInput defines the input parameters for the stop_session tool.
type StopSessionInput struct{}

// StopSessionOutput defines the output for the stop_session tool.
type StopSessionOutput struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// handleStopSession handles the stop_session tool call.
func (s *Server) handleStopSession(ctx context.Context, req *mcp.CallToolRequest, input StopSessionInput) (*mcp.CallToolResult, StopSessionOutput, error) {
	if err := s.manager.Stop(); err != nil {
		return nil, StopSessionOutput{Success: false, ErrorMessage: err.Error()}, nil
	}
	return nil, StopSessionOutput{Success: true}, nil
}

// SendCommandInput defines the input parameters for the send_command tool.
type SendCommandInput struct {
	Type   string         `json:"type" jsonschema:"Command type discriminator (e.g. get_state, get_scene_tree, ping)"`
	Params map[string]any `json:"params,omitempty" jsonschema:"Command parameters, passed through to the editor unchanged"`
}

// SendCommandOutput defines the output for the send_command tool.
type SendCommandOutput struct {
	Success      bool            `json:"success"`
	Reply        json.RawMessage `json:"reply,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// handleSendCommand handles the send_command tool call.
func (s *Server) handleSendCommand(ctx context.Context, req *mcp.CallToolRequest, input SendCommandInput) (*mcp.CallToolResult, SendCommandOutput, error) {
	if input.Type == "" {
		return nil, SendCommandOutput{
			Success:      false,
			ErrorKind:    "state",
			ErrorMessage: "type is required",
		}, nil
	}

	reply, err := s.manager.Send(ctx, input.Type, input.Params)
	if err != nil {
		return nil, SendCommandOutput{
			Success:      false,
			ErrorKind:    errorKind(err),
			ErrorMessage: err.Error(),
		}, nil
	}

	return nil, SendCommandOutput{
		Success: true,
		Reply:   json.RawMessage(reply),
	}, nil
}

// GetEditorOutputInput defines the input parameters for get_editor_output.
type GetEditorOutputInput struct {
	Tail       int  `json:"tail,omitempty" jsonschema:"Return only the last N lines per stream (0 = all captured lines)"`
	ErrorsOnly bool `json:"errors_only,omitempty" jsonschema:"Return only the stderr stream"`
}

// GetEditorOutputOutput defines the output for get_editor_output.
type GetEditorOutputOutput struct {
	Output []string `json:"output"`
	Errors []string `json:"errors"`
}

// handleGetEditorOutput handles the get_editor_output tool call.
func (s *Server) handleGetEditorOutput(ctx context.Context, req *mcp.CallToolRequest, input GetEditorOutputInput) (*mcp.CallToolResult, GetEditorOutputOutput, error) {
	out := s.manager.Output(bridge.OutputOptions{
		Tail:       input.Tail,
		ErrorsOnly: input.ErrorsOnly,
	})

	// Guarantee non-nil slices so MCP clients see [] rather than null.
	stdout, stderr := out.Stdout, out.Stderr
	if stdout == nil {
		stdout = []string{}
	}
	if stderr == nil {
		stderr = []string{}
	}
	return nil, GetEditorOutputOutput{Output: stdout, Errors: stderr}, nil
}

// GetSessionStatusInput defines the input parameters for get_session_status.
type GetSessionStatusInput struct{}

// GetSessionStatusOutput defines the output for get_session_status.
type GetSessionStatusOutput struct {
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Project   string `json:"project,omitempty"`
	Pid       int    `json:"pid,omitempty"`
	Connected bool   `json:"connected"`
	Uptime    string `json:"uptime,omitempty"`
}

// handleGetSessionStatus handles the get_session_status tool call.
func (s *Server) handleGetSessionStatus(ctx context.Context, req *mcp.CallToolRequest, input GetSessionStatusInput) (*mcp.CallToolResult, GetSessionStatusOutput, error) {
	st := s.manager.Status()
	return nil, GetSessionStatusOutput{
		State:     string(st.State),
		SessionID: st.SessionID,
		Project:   st.Project,
		Pid:       st.Pid,
		Connected: st.Connected,
		Uptime:    st.Uptime,
	}, nil
}

// errorKind maps bridge sentinels to the stable kind strings agents can
// branch on.
func errorKind(err error) string {
	switch {
	case errors.Is(err, bridge.ErrTimeout):
		return "timeout"
	case errors.Is(err, bridge.ErrProtocol):
		return "protocol"
	case errors.Is(err, bridge.ErrNoSession), errors.Is(err, bridge.ErrNotConnected):
		return "connection"
	case errors.Is(err, bridge.ErrProcess):
		return "process"
	case errors.Is(err, bridge.ErrState):
		return "state"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}
