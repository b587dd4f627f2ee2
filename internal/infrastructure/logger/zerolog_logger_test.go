package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{name: "info level hides debug", debug: false, wantDebug: false},
		{name: "debug level shows debug", debug: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(&buf, tt.debug).Named("session")
			log.Debug("handshake %d", 1)
			log.Info("connected to %s", "ESP32")

			out := buf.String()
			if strings.Contains(out, "handshake 1") != tt.wantDebug {
				t.Errorf("debug line presence = %v, want %v: %q", !tt.wantDebug, tt.wantDebug, out)
			}
			if !strings.Contains(out, "connected to ESP32") {
				t.Errorf("info line missing: %q", out)
			}
			if !strings.Contains(out, "session") {
				t.Errorf("component field missing: %q", out)
			}
		})
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("nothing %s", "here")
	log.Named("x").Error("still nothing")
}
