// Package main provides the MCP command for the gdpilot CLI.
package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gdpilot/cli/internal/bridge"
	"github.com/gdpilot/cli/internal/config"
	"github.com/gdpilot/cli/internal/godot"
	"github.com/gdpilot/cli/internal/mcp"
	"github.com/gdpilot/cli/internal/ui"
)

// mcpCmd is the parent command for MCP operations.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long: `MCP (Model Context Protocol) server commands.

The MCP server allows AI agents to drive a Godot editor through the
Model Context Protocol: starting supervised editor sessions, sending
commands over the live channel, and reading captured editor output.

Commands:
  serve  - Start the MCP server over stdio`,
}

// mcpServeCmd starts the MCP server.
var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server over stdio",
	Long: `Start the gdpilot MCP server over stdio.

This command starts an MCP server that communicates via JSON-RPC
over stdin/stdout. It's designed to be launched by AI hosts like
Cursor or Claude Desktop.

The server exposes the following tools:
  - start_session: Launch a Godot editor with the command listener injected
  - stop_session: Shut the editor down and restore the project
  - send_command: Send one command and return the editor's JSON reply
  - get_editor_output: Read captured editor stdout/stderr
  - get_session_status: Report session state, pid, and uptime

The Godot executable is found via --godot, GDPILOT_GODOT_PATH,
GODOT_PATH, PATH, or well-known install locations, in that order.

Example Cursor configuration:
  {
    "mcpServers": {
      "gdpilot": {
        "command": "gdpilot",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().String("godot", "", "Path to the Godot editor executable")
	mcpServeCmd.Flags().Int("port", 0, "Loopback port for the command listener")
	mcpCmd.AddCommand(mcpServeCmd)
}

// runMCPServe starts the MCP server.
func runMCPServe(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(workDir))
	if err != nil {
		ui.PrintError("Failed to load config: %v", err)
		return err
	}

	godotPath, _ := cmd.Flags().GetString("godot")
	if godotPath == "" {
		godotPath = cfg.GodotPath
	}
	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = cfg.Port
	}

	manager := bridge.NewManager(bridge.Options{
		Port:           port,
		CommandTimeout: time.Duration(cfg.CommandTimeoutSeconds) * time.Second,
		LogCapacity:    cfg.LogLines,
		Logger:         log.Default(),
		LocateExecutable: func() (string, error) {
			return godot.Locate(godotPath)
		},
	})

	server := mcp.NewServer(manager, version)

	// Run the server (blocks until client disconnects)
	return server.Run(cmd.Context())
}
