// Package tunnel launches a Cloudflare quick tunnel so a local backend
// can receive platform webhooks without a public address.
package tunnel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// URLPattern matches the public URL cloudflared prints once the quick
// tunnel is established.
var URLPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

// Launcher runs a cloudflared quick tunnel targeting the local server.
type Launcher struct {
	Host       string
	Port       int
	AgentRoute string
	Binary     string

	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// NewLauncher returns a Launcher for the given local target.
func NewLauncher(host string, port int, agentRoute, binary string) *Launcher {
	if binary == "" {
		binary = "cloudflared"
	}
	return &Launcher{Host: host, Port: port, AgentRoute: agentRoute, Binary: binary}
}

// Start spawns cloudflared and blocks until the tunnel URL appears in
// its output or the timeout elapses. It returns the public webhook URL
// (tunnel URL joined with the agent route).
func (l *Launcher) Start(ctx context.Context, timeout time.Duration) (string, error) {
	if _, err := exec.LookPath(l.Binary); err != nil {
		return "", fmt.Errorf("%s binary not found: %w", l.Binary, err)
	}

	targetHost := l.Host
	if targetHost == "0.0.0.0" || targetHost == "" {
		targetHost = "localhost"
	}
	target := fmt.Sprintf("http://%s:%d", targetHost, l.Port)

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	cmd := exec.CommandContext(runCtx, l.Binary, "tunnel", "--url", target)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return "", fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return "", fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	log.Printf("INFO: starting Cloudflare tunnel for %s", target)
	if err := cmd.Start(); err != nil {
		cancel()
		return "", fmt.Errorf("failed to start %s: %w", l.Binary, err)
	}
	l.cmd = cmd

	// cloudflared prints the quick-tunnel URL on stderr; watch both
	// streams anyway.
	urls := make(chan string, 2)
	go scanForURL(stdout, urls)
	go scanForURL(stderr, urls)

	select {
	case url := <-urls:
		webhookURL := url + "/" + strings.TrimPrefix(l.AgentRoute, "/")
		log.Printf("INFO: tunnel established: %s", url)
		return webhookURL, nil
	case <-time.After(timeout):
		l.Stop()
		return "", fmt.Errorf("timed out waiting for tunnel URL")
	case <-ctx.Done():
		l.Stop()
		return "", ctx.Err()
	}
}

// Stop terminates the tunnel process.
func (l *Launcher) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.cmd != nil {
		_ = l.cmd.Wait()
		l.cmd = nil
	}
}

// scanForURL reads lines from a cloudflared stream and reports the
// first tunnel URL it sees. The stream is drained afterwards so the
// process never blocks on a full pipe.
func scanForURL(r io.Reader, urls chan<- string) {
	scanner := bufio.NewScanner(r)
	found := false
	for scanner.Scan() {
		if found {
			continue
		}
		if match := URLPattern.FindString(scanner.Text()); match != "" {
			found = true
			select {
			case urls <- match:
			default:
			}
		}
	}
}

// ExtractURL returns the first tunnel URL in a chunk of cloudflared
// output, or "".
func ExtractURL(output string) string {
	return URLPattern.FindString(output)
}
