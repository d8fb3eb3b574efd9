package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/meridian-crm/meridian-core/internal/auth"
)

// wsURL converts an httptest server URL into a ws:// endpoint.
func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

// TestWebSocket_QueryTokenConnect verifies a browser-style connect: no
// Authorization header, JWT carried in the token query parameter only.
func TestWebSocket_QueryTokenConnect(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	token, err := auth.GenerateAccessToken(&auth.Agent{
		ID:       "agt-test",
		Username: "tester",
		Role:     auth.RoleAgent,
		IsActive: true,
	}, testJWTSecret, 15)
	if err != nil {
		t.Fatalf("generating test token: %v", err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/ws?token="+token), nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed (status %d): %v", status, err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
}

func TestWebSocket_MissingToken(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/ws"), nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial succeeded without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 response, got %+v", resp)
	}
}

func TestWebSocket_InvalidToken(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/ws?token=not-a-jwt"), nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial succeeded with a bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 response, got %+v", resp)
	}
}
