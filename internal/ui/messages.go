package ui

import (
	"fmt"
	"sync/atomic"
)

// quiet suppresses non-essential output when set via --quiet.
var quiet atomic.Bool

// SetQuietMode toggles suppression of success/info/dim messages. Errors
// and warnings always print.
func SetQuietMode(enabled bool) {
	quiet.Store(enabled)
}

// PrintSuccess prints a success message.
func PrintSuccess(format string, args ...interface{}) {
	if quiet.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Println(SuccessStyle.Render("✓ " + msg))
}

// PrintError prints an error message.
func PrintError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(ErrorStyle.Render("✗ " + msg))
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(WarningStyle.Render("⚠ " + msg))
}

// PrintInfo prints an informational message.
func PrintInfo(format string, args ...interface{}) {
	if quiet.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Println(InfoStyle.Render(msg))
}

// PrintDim prints a dimmed message.
func PrintDim(format string, args ...interface{}) {
	if quiet.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Println(DimStyle.Render(msg))
}
