package bridge

import (
	"strings"
	"testing"
)

func TestListenerSourcePort(t *testing.T) {
	tests := []struct {
		name string
		port int
		want string
	}{
		{name: "zero uses default", port: 0, want: "const PORT := 9080"},
		{name: "default port unchanged", port: DefaultPort, want: "const PORT := 9080"},
		{name: "custom port spliced in", port: 9181, want: "const PORT := 9181"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := string(listenerSource(tt.port))
			if !strings.Contains(src, tt.want) {
				t.Errorf("listener source lacks %q", tt.want)
			}
			if strings.Count(src, "const PORT :=") != 1 {
				t.Errorf("listener source has conflicting PORT declarations:\n%s", src)
			}
		})
	}

	// The embedded asset itself must never be mutated by rendering.
	_ = listenerSource(9181)
	if !strings.Contains(string(listenerScript), "const PORT := 9080") {
		t.Error("embedded asset no longer carries the default port")
	}
}
