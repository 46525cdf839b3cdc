package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/router"
)

type stubProcessor struct{}

func (stubProcessor) Process(ctx context.Context, utterance string) router.Reply {
	return router.Reply{
		RequestID: router.RequestIDFrom(ctx),
		Text:      "echo: " + utterance,
		Plain:     "echo: " + utterance,
		Intents:   []classifier.Intent{classifier.IntentUnknown},
	}
}

func newServer(t *testing.T, allowedOrigins ...string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws/command", NewCommandHandler(stubProcessor{}, nil, allowedOrigins...).HandleCommand)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/command"
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := newServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandleCommand_Response(t *testing.T) {
	conn := dial(t)

	if err := conn.WriteJSON(map[string]string{"command": "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out OutgoingMessage
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Type != "response" || out.Content != "echo: hello" {
		t.Errorf("got %+v", out)
	}
	if len(out.Intents) != 1 || out.Intents[0] != "unknown" {
		t.Errorf("intents = %v", out.Intents)
	}
}

func TestHandleCommand_MissingField(t *testing.T) {
	conn := dial(t)

	if err := conn.WriteJSON(map[string]string{"text": "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out OutgoingMessage
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Type != "error" {
		t.Errorf("type = %q, want error", out.Type)
	}

	// The connection stays usable after an error.
	if err := conn.WriteJSON(map[string]string{"command": "again"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Content != "echo: again" {
		t.Errorf("content = %q", out.Content)
	}
}

func TestHandleCommand_OriginCheck(t *testing.T) {
	url := newServer(t, "https://app.example")

	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"listed origin", "https://app.example", false},
		{"no origin", "", false},
		{"foreign origin", "https://evil.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.wantErr {
				if err == nil {
					conn.Close()
					t.Fatal("handshake from foreign origin succeeded")
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Errorf("resp = %v, want 403", resp)
				}
				return
			}
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			conn.Close()
		})
	}
}
