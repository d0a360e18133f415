package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"SessionID", KeySessionID, "s1", SessionID("s1")},
		{"Pass", KeyPass, "legacy", Pass("legacy")},
		{"Command", KeyCommand, "serve", Command("serve")},
		{"Plugin", KeyPlugin, "built-in:config/css", Plugin("built-in:config/css")},
		{"Mode", KeyMode, "production", Mode("production")},
		{"Target", KeyTarget, "app", Target("app")},
		{"URL", KeyURL, "http://localhost:8080/", URL("http://localhost:8080/")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Fatalf("%s key mismatch: got %s want %s", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Fatalf("%s value mismatch: got %s want %s", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Port(8080); a.Key != KeyPort || a.Value.Int64() != 8080 {
		t.Fatalf("Port attr mismatch: %v", a)
	}
	if a := DurationMS(12.5); a.Key != KeyDurationMS || a.Value.Float64() != 12.5 {
		t.Fatalf("DurationMS attr mismatch: %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should produce empty value, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("error value mismatch: %q", a.Value.String())
	}
}
