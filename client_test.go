package slacksocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// fakeSlack is an in-process Slack backend: the rtm.start handshake, the
// identifier lookup endpoints, and a websocket that replays canned frames.
type fakeSlack struct {
	ts     *httptest.Server
	frames []string
}

func newFakeSlack(t *testing.T, frames []string) *fakeSlack {
	t.Helper()

	f := &fakeSlack{frames: frames}
	mux := http.NewServeMux()

	mux.HandleFunc("/rtm.start", func(w http.ResponseWriter, r *http.Request) {
		wsURL := strings.Replace(f.ts.URL, "http", "ws", 1) + "/socket"
		fmt.Fprintf(w, `{
			"ok": true,
			"url": %q,
			"self": {"id": "U0", "name": "tailbot"},
			"team": {"id": "T1", "name": "acme"},
			"users": [{"id": "U1", "name": "alice"}, {"id": "U2", "name": "bob"}],
			"channels": [{"id": "C1", "name": "general"}],
			"groups": [],
			"ims": [{"id": "D1", "user": "U2"}],
			"bots": []
		}`, wsURL)
	})

	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") == "U3" {
			fmt.Fprint(w, `{"ok": true, "user": {"id": "U3", "name": "carol"}}`)
			return
		}
		fmt.Fprint(w, `{"ok": false, "error": "user_not_found"}`)
	})

	mux.HandleFunc("/conversations.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "channel_not_found"}`)
	})

	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		for _, frame := range f.frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		conn.Read(ctx)
	})

	f.ts = httptest.NewServer(mux)
	t.Cleanup(f.ts.Close)
	return f
}

func (f *fakeSlack) newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	opts = append([]Option{WithAPIBaseURL(f.ts.URL)}, opts...)
	client, err := New(ctx, "xoxb-test", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientTranslatedStream(t *testing.T) {
	f := newFakeSlack(t, []string{
		`{"type":"message","user":"U1","channel":"C1","text":"hi <@U2>"}`,
	})
	client := f.newClient(t)

	if client.Team() != "acme" || client.Self() != "tailbot" {
		t.Fatalf("identity not captured: %q/%q", client.Team(), client.Self())
	}
	if client.State() != StateConnected {
		t.Fatalf("state = %v, want connected", client.State())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := client.GetEvent(ctx, "message")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	payload := ev.JSON()
	if !strings.Contains(payload, `"user":"alice"`) || !strings.Contains(payload, `"channel":"general"`) {
		t.Fatalf("payload not translated: %s", payload)
	}
	if !strings.Contains(payload, "@bob") {
		t.Fatalf("mention not translated: %s", payload)
	}
	if ev.Time == 0 {
		t.Fatal("receipt time not stamped")
	}
}

func TestClientRawStream(t *testing.T) {
	raw := `{"type":"message","user":"U1","channel":"C1","text":"hi"}`
	f := newFakeSlack(t, []string{raw})
	client := f.newClient(t, WithTranslation(false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := client.GetEvent(ctx, "message")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if ev.JSON() != raw {
		t.Fatalf("payload altered with translation off:\n got %s\nwant %s", ev.JSON(), raw)
	}
}

func TestClientLazyAndFailedLookups(t *testing.T) {
	f := newFakeSlack(t, []string{
		`{"type":"message","user":"U3","channel":"C404","text":"new here"}`,
	})
	client := f.newClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := client.GetEvent(ctx, "message")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	payload := ev.JSON()
	// U3 resolves lazily via users.info; C404 fails and stays as-is.
	if !strings.Contains(payload, `"user":"carol"`) {
		t.Fatalf("lazy lookup not applied: %s", payload)
	}
	if !strings.Contains(payload, `"channel":"C404"`) {
		t.Fatalf("failed lookup must leave identifier unchanged: %s", payload)
	}
}

func TestClientFilteredRetrieval(t *testing.T) {
	f := newFakeSlack(t, []string{
		`{"type":"message","text":"first"}`,
		`{"type":"presence_change","user":"U1"}`,
		`{"type":"message","text":"second"}`,
	})
	client := f.newClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Pull the presence event past two queued messages; messages stay queued.
	ev, err := client.GetEvent(ctx, "presence_change")
	if err != nil {
		t.Fatalf("get presence: %v", err)
	}
	if ev.Type != "presence_change" {
		t.Fatalf("unexpected type %q", ev.Type)
	}

	ev, err = client.GetEvent(ctx, "message")
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if !strings.Contains(ev.JSON(), "first") {
		t.Fatalf("message order broken: %s", ev.JSON())
	}
}

func TestClientEventsChannel(t *testing.T) {
	f := newFakeSlack(t, []string{
		`{"type":"message","text":"one"}`,
		`{"type":"message","text":"two"}`,
	})
	client := f.newClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := client.Events(ctx)
	first := <-stream
	second := <-stream
	if first == nil || second == nil {
		t.Fatal("stream ended early")
	}
	if !strings.Contains(first.JSON(), "one") || !strings.Contains(second.JSON(), "two") {
		t.Fatalf("unexpected stream contents: %s / %s", first.JSON(), second.JSON())
	}

	client.Close()
	if _, ok := <-stream; ok {
		t.Fatal("stream not closed after client close")
	}
}

func TestClientCloseSemantics(t *testing.T) {
	f := newFakeSlack(t, nil)
	client := f.newClient(t)

	unblocked := make(chan error, 1)
	go func() {
		_, err := client.GetEvent(context.Background(), "message")
		unblocked <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-unblocked:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("blocked call returned %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close did not unblock GetEvent")
	}

	// Subsequent calls fail immediately, and close is idempotent.
	if _, err := client.GetEvent(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if client.State() != StateClosed {
		t.Fatalf("state = %v, want closed", client.State())
	}
}

func TestClientAuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "token_revoked"}`)
	}))
	t.Cleanup(ts.Close)

	_, err := New(context.Background(), "xoxb-revoked", WithAPIBaseURL(ts.URL))
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestClientEmptyToken(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestClientBootstrapNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	if _, err := New(context.Background(), "xoxb-test", WithAPIBaseURL(url)); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestClientTransportLossClosesStream(t *testing.T) {
	// Server drops the connection abruptly after one frame.
	f := &fakeSlack{}
	mux := http.NewServeMux()
	mux.HandleFunc("/rtm.start", func(w http.ResponseWriter, r *http.Request) {
		wsURL := strings.Replace(f.ts.URL, "http", "ws", 1) + "/socket"
		fmt.Fprintf(w, `{"ok": true, "url": %q, "self": {"name": "tailbot"}, "team": {"name": "acme"},
			"users": [], "channels": [], "groups": [], "ims": [], "bots": []}`, wsURL)
	})
	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(`{"type":"hello"}`))
		conn.CloseNow()
	})
	f.ts = httptest.NewServer(mux)
	t.Cleanup(f.ts.Close)

	client := f.newClient(t, WithTranslation(false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The pre-drop event is still delivered, then the stream reports closed.
	if _, err := client.GetEvent(ctx, "hello"); err != nil {
		t.Fatalf("get hello: %v", err)
	}
	if _, err := client.GetEvent(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after transport loss, got %v", err)
	}

	if client.Err() == nil {
		t.Fatal("terminal error not recorded")
	}
	if client.State() != StateClosed {
		t.Fatalf("state = %v, want closed", client.State())
	}
}
