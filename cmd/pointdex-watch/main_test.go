package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFormatEvent(t *testing.T) {
	line, err := formatEvent([]byte(`{"label":"pikachu","label_index":24,"confidence":0.912,"timestamp":"2024-05-01T10:11:12Z"}`))
	if err != nil {
		t.Fatalf("formatEvent failed: %v", err)
	}
	for _, want := range []string{"10:11:12", "pikachu", "#24", "91.2 %"} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in %q", want, line)
		}
	}

	if _, err := formatEvent([]byte(`{"label":""}`)); err == nil {
		t.Error("Expected error for empty label")
	}
	if _, err := formatEvent([]byte(`not json`)); err == nil {
		t.Error("Expected error for bad json")
	}
}

func TestFormatPrediction(t *testing.T) {
	line, err := formatPrediction([]byte(`{"label":"eevee","confidence":0.5,"ready":true,"state":{"consecutive_count":3},"latency":42000000}`))
	if err != nil {
		t.Fatalf("formatPrediction failed: %v", err)
	}
	for _, want := range []string{"* eevee", "50.0 %", "run=3", "42ms"} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in %q", want, line)
		}
	}
}

func TestStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"label":"ditto","label_index":131,"confidence":0.3}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	if err := stream(ctx, url, &out, formatEvent); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if !strings.Contains(out.String(), "ditto") {
		t.Errorf("Expected ditto in output, got %q", out.String())
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Errorf("Expected one printed line, got %q", out.String())
	}
}
