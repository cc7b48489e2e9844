package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", &buf)
	log.Debug().Str("guard_id", "email").Msg("guard finished")

	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse log line as JSON: %v", err)
	}
	if parsed["guard_id"] != "email" {
		t.Errorf("expected guard_id 'email', got %v", parsed["guard_id"])
	}
	if parsed["level"] != "debug" {
		t.Errorf("expected level 'debug', got %v", parsed["level"])
	}
	if _, ok := parsed["time"]; !ok {
		t.Error("expected a timestamp")
	}
}

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"WARN", false, true},
		{"error", false, false},
		{"bogus", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)

			log.Debug().Msg("d")
			if got := buf.Len() > 0; got != tt.debugSeen {
				t.Errorf("debug written = %v, want %v", got, tt.debugSeen)
			}
			buf.Reset()
			log.Warn().Msg("w")
			if got := buf.Len() > 0; got != tt.warnSeen {
				t.Errorf("warn written = %v, want %v", got, tt.warnSeen)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Component(New("info", &buf), "server").Info().Msg("listening")

	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["component"] != "server" {
		t.Errorf("expected component 'server', got %v", parsed["component"])
	}
}
