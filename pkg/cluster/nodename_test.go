package cluster

import (
	"errors"
	"testing"
)

func TestFormatNodeName(t *testing.T) {
	if got := FormatNodeName("svc", 9001, "host-a"); got != "svc-9001@host-a" {
		t.Errorf("Expected 'svc-9001@host-a', got '%s'", got)
	}
}

func TestParseNodeName(t *testing.T) {
	prefix, port, host, err := ParseNodeName("svc-9001@host-a")
	if err != nil {
		t.Fatalf("ParseNodeName failed: %v", err)
	}
	if prefix != "svc" || port != 9001 || host != "host-a" {
		t.Errorf("Unexpected parts: prefix=%s port=%d host=%s", prefix, port, host)
	}

	// Prefixes may themselves contain dashes
	prefix, port, host, err = ParseNodeName("my-svc-9002@host-b")
	if err != nil {
		t.Fatalf("ParseNodeName failed: %v", err)
	}
	if prefix != "my-svc" || port != 9002 || host != "host-b" {
		t.Errorf("Unexpected parts: prefix=%s port=%d host=%s", prefix, port, host)
	}
}

func TestParseNodeNameInvalid(t *testing.T) {
	cases := []string{
		"",
		"svc-9001",
		"svc@host-a",
		"svc-@host-a",
		"svc-abc@host-a",
		"svc-99999@host-a",
		"svc-9001@",
		"-9001@host-a",
	}
	for _, name := range cases {
		if _, _, _, err := ParseNodeName(name); !errors.Is(err, ErrInvalidNodeName) {
			t.Errorf("Expected ErrInvalidNodeName for %q, got %v", name, err)
		}
	}
}
