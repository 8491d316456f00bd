package tunnel

import "testing"

func TestExtractURL(t *testing.T) {
	output := `2026-08-23T10:00:00Z INF +--------------------------------------------+
2026-08-23T10:00:00Z INF |  Your quick Tunnel has been created! Visit it at:  |
2026-08-23T10:00:00Z INF |  https://random-words-1234.trycloudflare.com  |
2026-08-23T10:00:00Z INF +--------------------------------------------+`

	got := ExtractURL(output)
	want := "https://random-words-1234.trycloudflare.com"
	if got != want {
		t.Fatalf("ExtractURL = %q, want %q", got, want)
	}
}

func TestExtractURLNoMatch(t *testing.T) {
	if got := ExtractURL("starting tunnel..."); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestNewLauncherDefaultsBinary(t *testing.T) {
	l := NewLauncher("0.0.0.0", 8000, "/api/agent", "")
	if l.Binary != "cloudflared" {
		t.Fatalf("expected default binary, got %q", l.Binary)
	}
}
