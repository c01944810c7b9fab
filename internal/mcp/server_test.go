package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/gdpilot/cli/internal/bridge"
)

// testServer builds a server over an idle manager. No editor process is
// involved; these tests exercise the tool surface around the session, not
// the session itself.
func testServer(t *testing.T) *Server {
	t.Helper()
	manager := bridge.NewManager(bridge.Options{
		Logger: log.New(io.Discard),
		LocateExecutable: func() (string, error) {
			return "", fmt.Errorf("no editor in test environment")
		},
	})
	return NewServer(manager, "test")
}

func TestStartSessionRequiresProjectPath(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleStartSession(context.Background(), nil, StartSessionInput{})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.Success {
		t.Error("expected failure for empty project_path")
	}
	if out.ErrorMessage != "project_path is required" {
		t.Errorf("error message = %q", out.ErrorMessage)
	}
}

func TestStartSessionReportsLocateFailure(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleStartSession(context.Background(), nil, StartSessionInput{
		ProjectPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.Success {
		t.Error("expected failure when no editor executable exists")
	}
	if !strings.Contains(out.ErrorMessage, "no editor in test environment") {
		t.Errorf("error message does not surface the locate failure: %q", out.ErrorMessage)
	}
}

func TestStopSessionWithoutSession(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleStopSession(context.Background(), nil, StopSessionInput{})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.Success {
		t.Error("expected failure when no session is running")
	}
	if !strings.Contains(out.ErrorMessage, "no session is running") {
		t.Errorf("error message = %q", out.ErrorMessage)
	}
}

func TestSendCommandRequiresType(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleSendCommand(context.Background(), nil, SendCommandInput{})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.Success {
		t.Error("expected failure for empty type")
	}
	if out.ErrorKind != "state" {
		t.Errorf("error kind = %q, want state", out.ErrorKind)
	}
}

func TestSendCommandWithoutSession(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleSendCommand(context.Background(), nil, SendCommandInput{Type: "ping"})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.Success {
		t.Error("expected failure with no session running")
	}
	if out.ErrorKind != "connection" {
		t.Errorf("error kind = %q, want connection", out.ErrorKind)
	}
}

func TestGetSessionStatusIdle(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleGetSessionStatus(context.Background(), nil, GetSessionStatusInput{})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.State != "idle" {
		t.Errorf("state = %q, want idle", out.State)
	}
	if out.Connected {
		t.Error("idle manager reported connected")
	}
	if out.Pid != 0 || out.SessionID != "" {
		t.Errorf("idle status carries session fields: %+v", out)
	}
}

func TestGetEditorOutputEmptySlices(t *testing.T) {
	srv := testServer(t)

	_, out, err := srv.handleGetEditorOutput(context.Background(), nil, GetEditorOutputInput{})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if out.Output == nil || out.Errors == nil {
		t.Error("output slices must be non-nil so clients see [] not null")
	}
	if len(out.Output) != 0 || len(out.Errors) != 0 {
		t.Errorf("idle manager returned output: %+v", out)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{bridge.ErrTimeout, "timeout"},
		{fmt.Errorf("wrap: %w", bridge.ErrTimeout), "timeout"},
		{bridge.ErrProtocol, "protocol"},
		{bridge.ErrNotConnected, "connection"},
		{bridge.ErrNoSession, "connection"},
		{bridge.ErrProcess, "process"},
		{bridge.ErrState, "state"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("mystery"), "unknown"},
	}

	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
