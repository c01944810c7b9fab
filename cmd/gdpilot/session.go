// Package main provides the session commands for the gdpilot CLI.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"

	"github.com/gdpilot/cli/internal/bridge"
	"github.com/gdpilot/cli/internal/config"
	"github.com/gdpilot/cli/internal/godot"
	"github.com/gdpilot/cli/internal/ui"
)

// sessionCmd is the parent command for session operations.
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Interactive editor session commands",
	Long: `Interactive editor session commands.

'session run' owns a full session lifecycle: it injects the command
listener, launches the editor, streams its output, and restores the
project when the editor exits or the command is interrupted.

'session send' dials a listener that is already running (started by
'session run' in another terminal, or by an MCP host) and sends a
single command.`,
}

// sessionRunCmd holds an interactive session for the lifetime of the command.
var sessionRunCmd = &cobra.Command{
	Use:   "run <project-dir>",
	Short: "Launch a supervised editor session and stream its output",
	Long: `Launch a Godot editor for the given project with the command listener
injected, then stream the editor's output until it exits or the command
is interrupted with Ctrl-C. The project descriptor is restored byte for
byte on the way out.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionRun,
}

// sessionSendCmd sends one command to an already-running listener.
var sessionSendCmd = &cobra.Command{
	Use:   "send <type>",
	Short: "Send one command to a running editor session",
	Long: `Send a single command to the listener of an already-running session
and print the editor's JSON reply.

Parameters can be given as repeated --param key=value flags (values are
sent as strings) or as a raw JSON object via --params-json.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionSend,
}

func init() {
	sessionRunCmd.Flags().String("godot", "", "Path to the Godot editor executable")
	sessionRunCmd.Flags().Int("port", 0, "Loopback port for the command listener")
	sessionRunCmd.Flags().String("scene", "", "Scene to open (e.g. res://main.tscn)")

	sessionSendCmd.Flags().Int("port", 0, "Loopback port of the running listener")
	sessionSendCmd.Flags().StringArray("param", nil, "Command parameter as key=value (repeatable)")
	sessionSendCmd.Flags().String("params-json", "", "Command parameters as a raw JSON object")
	sessionSendCmd.Flags().Duration("timeout", 0, "Reply timeout (default 5s)")

	sessionCmd.AddCommand(sessionRunCmd)
	sessionCmd.AddCommand(sessionSendCmd)
}

// runSessionRun implements 'gdpilot session run'.
func runSessionRun(cmd *cobra.Command, args []string) error {
	projectDir := args[0]

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
	scene, _ := cmd.Flags().GetString("scene")
	if scene == "" {
		scene = cfg.DefaultScene
	}

	exited := make(chan struct{})
	manager := bridge.NewManager(bridge.Options{
		Port:           port,
		CommandTimeout: time.Duration(cfg.CommandTimeoutSeconds) * time.Second,
		LogCapacity:    cfg.LogLines,
		Logger:         log.Default(),
		LocateExecutable: func() (string, error) {
			return godot.Locate(godotPath)
		},
		// Runs after the manager's own teardown, so the project is already
		// restored when the select below observes the exit.
		OnEditorExit: func(err error) {
			if err != nil {
				ui.PrintWarning("Editor exited: %v", err)
			}
			close(exited)
		},
	})

	// Stream editor output as it arrives.
	manager.Supervisor().OnLine = func(stream, line string) {
		if stream == "stderr" {
			fmt.Fprintln(os.Stderr, ui.DimStyle.Render(line))
			return
		}
		fmt.Println(line)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Starting editor session for %s", projectDir)
	if err := manager.Start(ctx, projectDir, scene); err != nil {
		ui.PrintError("Failed to start session: %v", err)
		return err
	}

	st := manager.Status()
	ui.PrintSuccess("Session %s running (pid %d)", st.SessionID, st.Pid)
	ui.PrintDim("Press Ctrl-C to stop and restore the project")
	ui.PrintDim("%s", strings.Repeat("─", ui.Width()))

	select {
	case <-ctx.Done():
		ui.PrintInfo("Stopping session")
		if err := manager.Stop(); err != nil {
			ui.PrintError("Teardown failed: %v", err)
			return err
		}
		ui.PrintSuccess("Project restored")
	case <-exited:
		// The manager tears down on its own when the editor exits.
		ui.PrintInfo("Editor exited, project restored")
	}
	return nil
}

// runSessionSend implements 'gdpilot session send'.
func runSessionSend(cmd *cobra.Command, args []string) error {
	commandType := args[0]

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(workDir))
	if err != nil {
		ui.PrintError("Failed to load config: %v", err)
		return err
	}

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = cfg.Port
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 && cfg.CommandTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.CommandTimeoutSeconds) * time.Second
	}

	params, err := collectParams(cmd.Flags())
	if err != nil {
		ui.PrintError("%v", err)
		return err
	}

	client := bridge.NewClient(port, timeout, log.Default())
	defer client.Close(nil)

	reply, err := client.Send(cmd.Context(), commandType, params)
	if err != nil {
		ui.PrintError("Command failed: %v", err)
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut || !ui.IsTerminal() {
		fmt.Println(string(reply))
		return nil
	}

	printReply(reply)
	return nil
}

// collectParams merges --params-json and repeated --param flags, with
// --param entries taking precedence.
func collectParams(flags *pflag.FlagSet) (map[string]any, error) {
	params := map[string]any{}

	if raw, _ := flags.GetString("params-json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("invalid --params-json: %w", err)
		}
	}

	pairs, _ := flags.GetStringArray("param")
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = value
	}

	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

// printReply renders a reply for a human: status line styled by outcome,
// then the payload pretty-printed.
func printReply(reply []byte) {
	status := gjson.GetBytes(reply, "status").String()
	switch status {
	case "ok":
		ui.PrintSuccess("Command succeeded")
	case "error":
		ui.PrintError("Editor reported an error: %s", gjson.GetBytes(reply, "message").String())
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply, "", "  "); err != nil {
		fmt.Println(string(reply))
		return
	}
	fmt.Println(pretty.String())
}
