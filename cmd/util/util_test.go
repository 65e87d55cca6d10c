package util

import (
	"github.com/spf13/afero"
	"strings"
	"testing"
)

// TestWrapString tests the help text wrapping
func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line too long (%d): %q", len(line), line)
		}
	}
	if WrapString("short text") != "short text" {
		t.Errorf("Short text must not be wrapped")
	}
}

// TestReadKeyFile tests the key file reader on the command filesystem
func TestReadKeyFile(t *testing.T) {
	old := Fs
	Fs = afero.NewMemMapFs()
	defer func() { Fs = old }()

	_ = afero.WriteFile(Fs, "user.key", make([]byte, 32), 0o600)
	_ = afero.WriteFile(Fs, "bad.key", make([]byte, 31), 0o600)

	if key, err := ReadKeyFile("user.key"); err != nil || len(key) != 32 {
		t.Errorf("Unexpected result %v, %v", key, err)
	}
	if _, err := ReadKeyFile("bad.key"); err == nil {
		t.Errorf("Expected error for a 31 byte key")
	}
}
