package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five failure kinds callers can act on.
// Wrap with %w so errors.Is works through the whole call chain.
var (
	// ErrNotConnected indicates the editor's command listener could not be
	// reached. The usual cause is that no interactive session is running.
	ErrNotConnected = errors.New("editor not connected")

	// ErrProtocol indicates the editor sent a reply that is not valid JSON.
	ErrProtocol = errors.New("protocol violation")

	// ErrTimeout indicates no reply arrived within the command timeout.
	ErrTimeout = errors.New("command timed out")

	// ErrProcess indicates an editor process launch, exit, or stop failure.
	ErrProcess = errors.New("editor process error")

	// ErrState indicates the project could not be prepared or restored.
	ErrState = errors.New("project state error")

	// ErrNoSession indicates a command was issued with no session running.
	ErrNoSession = errors.New("no interactive session")
)

// connectionError wraps a dial or socket failure with the hint callers need
// most often: the editor has to be started through a session first.
func connectionError(err error) error {
	return fmt.Errorf("%w: %v (start an interactive session first)", ErrNotConnected, err)
}

// timeoutError names the command that went unanswered.
func timeoutError(commandType string) error {
	return fmt.Errorf("%w: no reply to %q", ErrTimeout, commandType)
}

// protocolError carries the unparsable line for diagnostics, truncated so a
// misbehaving editor can't flood logs or MCP replies.
func protocolError(line []byte) error {
	const maxQuoted = 120
	quoted := string(line)
	if len(quoted) > maxQuoted {
		quoted = quoted[:maxQuoted] + "..."
	}
	return fmt.Errorf("%w: reply is not valid JSON: %q", ErrProtocol, quoted)
}
