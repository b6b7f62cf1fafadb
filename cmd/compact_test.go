package cmd

import "testing"

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{32 * 1024 * 1024, "32.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestCompletionUnknownShell(t *testing.T) {
	if err := Completion("powershell"); err == nil {
		t.Fatal("expected error for unsupported shell")
	}
}
