package httpserver

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voicemesh/signal-relay/internal/config"
	"github.com/voicemesh/signal-relay/internal/metrics"
)

type fakeStatus struct {
	rooms, connections int
}

func (f fakeStatus) Stats() (int, int) { return f.rooms, f.connections }

func startServer(t *testing.T, cfg config.Config, status StatusSource) (*Server, string) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(cfg, log, BuildInfo{Commit: "abc123", BuildTime: "2026-01-01T00:00:00Z"}, status, metrics.New())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return s, "http://" + l.Addr().String()
}

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	return do(t, http.MethodGet, url, header)
}

func do(t *testing.T, method, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestStatusPage(t *testing.T) {
	_, base := startServer(t, config.Config{}, fakeStatus{rooms: 2, connections: 5})

	resp, body := get(t, base+"/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Currently 2 open room(s) and 5 online player(s).") {
		t.Fatalf("body = %q", body)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("content type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestStatusPage_OnlyAtRoot(t *testing.T) {
	_, base := startServer(t, config.Config{}, fakeStatus{})

	resp, _ := get(t, base+"/nosuchpage", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthzAndReadyz(t *testing.T) {
	_, base := startServer(t, config.Config{}, fakeStatus{})

	resp, body := get(t, base+"/healthz", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "true") {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, body = get(t, base+"/readyz", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "true") {
		t.Fatalf("readyz = %d %q", resp.StatusCode, body)
	}
}

func TestReadyz_ReportsICEConfigError(t *testing.T) {
	t.Setenv("ICE_SERVERS_JSON", "not json")
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.ListenAddr = "127.0.0.1:0"

	_, base := startServer(t, cfg, fakeStatus{})

	resp, _ := get(t, base+"/readyz", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", resp.StatusCode)
	}
}

func TestVersion(t *testing.T) {
	_, base := startServer(t, config.Config{}, fakeStatus{})

	resp, body := get(t, base+"/version", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "abc123") {
		t.Fatalf("version = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestWebRTCICE_OriginPolicy(t *testing.T) {
	cfg := config.Config{AllowedOrigins: []string{"https://app.example.com"}}
	_, base := startServer(t, cfg, fakeStatus{})

	resp, _ := get(t, base+"/webrtc/ice", http.Header{"Origin": []string{"https://evil.example.com"}})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("disallowed origin status = %d, want 403", resp.StatusCode)
	}

	resp, body := get(t, base+"/webrtc/ice", http.Header{"Origin": []string{"https://app.example.com"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("allowed origin status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "iceServers") {
		t.Fatalf("body = %q", body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestWebRTCICE_Preflight(t *testing.T) {
	cfg := config.Config{AllowedOrigins: []string{"https://app.example.com"}}
	_, base := startServer(t, cfg, fakeStatus{})

	resp, _ := do(t, http.MethodOptions, base+"/webrtc/ice", http.Header{
		"Origin":                        []string{"https://app.example.com"},
		"Access-Control-Request-Method": []string{"GET"},
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "GET") {
		t.Fatalf("Access-Control-Allow-Methods = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	resp, _ = do(t, http.MethodPost, base+"/webrtc/ice", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", resp.StatusCode)
	}
}

func TestOffsetsStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2026.8.28.yml"), []byte("meetingHud: 0xDEAD\n"), 0o644); err != nil {
		t.Fatalf("write offsets file: %v", err)
	}

	_, base := startServer(t, config.Config{OffsetsDir: dir}, fakeStatus{})

	resp, body := get(t, base+"/offsets/2026.8.28.yml", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "meetingHud") {
		t.Fatalf("body = %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, base := startServer(t, config.Config{}, fakeStatus{})

	resp, body := get(t, base+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "signal_relay_events_total") {
		t.Fatalf("body = %q", body)
	}
}
