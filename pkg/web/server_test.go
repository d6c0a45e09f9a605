package web

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-pointdex/pkg/camera"
	"github.com/teslashibe/go-pointdex/pkg/frame"
	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

type fakeController struct {
	mu        sync.Mutex
	suspended []loop.Reason
}

func (f *fakeController) Status() loop.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return loop.Status{Running: true, Suspended: append([]loop.Reason(nil), f.suspended...)}
}

func (f *fakeController) Suspend(reason loop.Reason) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended = append(f.suspended, reason)
	return func() { f.Resume(reason) }
}

func (f *fakeController) Resume(reason loop.Reason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.suspended {
		if r == reason {
			f.suspended = append(f.suspended[:i], f.suspended[i+1:]...)
			return
		}
	}
}

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestStatus(t *testing.T) {
	s := NewServer(":0", &fakeController{})

	code, body := do(t, s, http.MethodGet, "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var st loop.Status
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Running {
		t.Error("Expected running status")
	}
}

func TestSuspendResume(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer(":0", ctrl)

	code, body := do(t, s, http.MethodPost, "/api/suspend/detail", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	if got := ctrl.Status().Suspended; len(got) != 1 || got[0] != loop.ReasonDetail {
		t.Errorf("Expected detail suspension, got %v", got)
	}

	code, _ = do(t, s, http.MethodPost, "/api/resume/detail", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if got := ctrl.Status().Suspended; len(got) != 0 {
		t.Errorf("Expected no suspensions, got %v", got)
	}
}

func TestSuspendUnknownReason(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer(":0", ctrl)

	for _, path := range []string{"/api/suspend/nap", "/api/resume/nap"} {
		code, body := do(t, s, http.MethodPost, path, "")
		if code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, code)
		}
		if !strings.Contains(string(body), "unknown suspension reason") {
			t.Errorf("%s: unexpected body %s", path, body)
		}
	}
	if len(ctrl.Status().Suspended) != 0 {
		t.Error("Unknown reason must not suspend")
	}
}

func TestCameraEndpoints(t *testing.T) {
	m := camera.NewManager(camera.DefaultConfig())
	s := NewServer(":0", &fakeController{}, WithCamera(m))

	code, body := do(t, s, http.MethodGet, "/api/camera", "")
	if code != http.StatusOK || !strings.Contains(string(body), `"width":1280`) {
		t.Fatalf("Unexpected camera config %d: %s", code, body)
	}

	code, body = do(t, s, http.MethodPost, "/api/camera", `{"zoom_level": 2}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	if m.GetConfig().ZoomLevel != 2 {
		t.Errorf("Expected zoom 2, got %v", m.GetConfig().ZoomLevel)
	}

	code, _ = do(t, s, http.MethodPost, "/api/camera", `{"zoom_level": 99}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid zoom, got %d", code)
	}

	code, body = do(t, s, http.MethodGet, "/api/camera/presets", "")
	if code != http.StatusOK || !strings.Contains(string(body), "portrait") {
		t.Errorf("Unexpected presets %d: %s", code, body)
	}
}

func TestCameraNotConfigured(t *testing.T) {
	s := NewServer(":0", &fakeController{})

	for _, path := range []string{"/api/camera", "/api/snapshot"} {
		if code, _ := do(t, s, http.MethodGet, path, ""); code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, code)
		}
	}
}

func TestSnapshot(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)

	s := NewServer(":0", &fakeController{}, WithSnapshot(frame.NewStillSource(img), 0.85))

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %q", ct)
	}
	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if cfg.Width != 48 || cfg.Height != 48 {
		t.Errorf("Expected 48x48 square, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSnapshotNotReady(t *testing.T) {
	s := NewServer(":0", &fakeController{}, WithSnapshot(frame.NewStillSource(nil), 0.85))

	if code, _ := do(t, s, http.MethodGet, "/api/snapshot", ""); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pointdex_cycles_total 3\n")
	})
	s := NewServer(":0", &fakeController{}, WithMetrics(h))

	code, body := do(t, s, http.MethodGet, "/metrics", "")
	if code != http.StatusOK || !strings.Contains(string(body), "pointdex_cycles_total") {
		t.Errorf("Unexpected metrics response %d: %s", code, body)
	}

	if code, _ := do(t, NewServer(":0", &fakeController{}), http.MethodGet, "/metrics", ""); code != http.StatusNotFound {
		t.Errorf("Expected 404 without metrics, got %d", code)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(":0", &fakeController{})

	if code, _ := do(t, s, http.MethodGet, "/ws/events", ""); code != http.StatusUpgradeRequired {
		t.Errorf("Expected 426, got %d", code)
	}
}

func TestPresentReleasesAndRecords(t *testing.T) {
	s := NewServer(":0", &fakeController{})

	released := false
	ev := stability.ReadyEvent{Label: "pikachu", LabelIndex: 25, Confidence: 0.9, Timestamp: time.Now()}
	s.Present(ev, func() { released = true })

	if !released {
		t.Error("Expected release to be called")
	}
	h := s.History()
	if len(h) != 1 || h[0].Event.Label != "pikachu" {
		t.Fatalf("Unexpected history %+v", h)
	}

	code, body := do(t, s, http.MethodGet, "/api/events", "")
	if code != http.StatusOK || !strings.Contains(string(body), "pikachu") {
		t.Errorf("Unexpected events response %d: %s", code, body)
	}
}

func TestHistoryBounded(t *testing.T) {
	s := NewServer(":0", &fakeController{})
	for i := 0; i < maxHistory+10; i++ {
		s.Present(stability.ReadyEvent{Label: "ditto", LabelIndex: i}, func() {})
	}

	h := s.History()
	if len(h) != maxHistory {
		t.Fatalf("Expected %d entries, got %d", maxHistory, len(h))
	}
	if h[0].Event.LabelIndex != 10 {
		t.Errorf("Expected oldest entries dropped, first index %d", h[0].Event.LabelIndex)
	}
}

func TestEventsStream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := NewServer(ln.Addr().String(), &fakeController{})
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/ws/events"
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	s.Present(stability.ReadyEvent{Label: "eevee", LabelIndex: 133, Confidence: 0.8}, func() {})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev stability.ReadyEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Label != "eevee" || ev.LabelIndex != 133 {
		t.Errorf("Unexpected event %+v", ev)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestControllerAttachedLater(t *testing.T) {
	s := NewServer(":0", nil)

	if code, _ := do(t, s, http.MethodGet, "/api/status", ""); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before attach, got %d", code)
	}
	if code, _ := do(t, s, http.MethodPost, "/api/suspend/prompt", ""); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before attach, got %d", code)
	}

	s.SetController(&fakeController{})
	if code, _ := do(t, s, http.MethodGet, "/api/status", ""); code != http.StatusOK {
		t.Errorf("Expected 200 after attach, got %d", code)
	}
}
