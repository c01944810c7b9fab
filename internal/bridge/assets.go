package bridge

import (
	"bytes"
	_ "embed"
	"fmt"
)

// ListenerFileName is the reserved filename the listener script occupies in
// the project directory for the lifetime of a session.
const ListenerFileName = "gdpilot_listener.gd"

// AutoloadName is the singleton name registered in the project descriptor.
const AutoloadName = "GdPilotListener"

// autoloadValue is the descriptor entry value; the leading * marks the
// autoload as an enabled singleton.
const autoloadValue = `"*res://` + ListenerFileName + `"`

//go:embed assets/gdpilot_listener.gd
var listenerScript []byte

// listenerSource renders the listener script for the given port. The asset
// carries DefaultPort so it reads as valid GDScript on its own; any other
// port is spliced into the const declaration before install.
func listenerSource(port int) []byte {
	if port == 0 || port == DefaultPort {
		return listenerScript
	}
	def := fmt.Sprintf("const PORT := %d", DefaultPort)
	custom := fmt.Sprintf("const PORT := %d", port)
	return bytes.Replace(listenerScript, []byte(def), []byte(custom), 1)
}
