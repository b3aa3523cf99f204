package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	c.SetToken("tok-1")
	return c
}

func TestNewRejectsBadScheme(t *testing.T) {
	if _, err := New(Options{BaseURL: "ftp://example.com"}); err == nil {
		t.Error("New() accepted ftp scheme")
	}
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var auth string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"unreadCount": 4}`))
	}))

	n, err := c.UnreadCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("UnreadCount() = %d, want 4", n)
	}
	if auth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", auth)
	}
}

func TestNoTokenSkipsNetwork(t *testing.T) {
	calls := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	c.SetToken("")

	if _, err := c.ListConversations(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("err = %v, want ErrNoCredential", err)
	}
	if calls != 0 {
		t.Errorf("server saw %d requests, want 0", calls)
	}
	if c.HasToken() {
		t.Error("HasToken() = true after clearing")
	}
}

func TestEndpoints(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, "list")
		_, _ = w.Write([]byte(`[{"id":"c1","participantA":{"id":"u1","name":"Ana"},"participantB":{"id":"u2","name":"Bo"},"unreadCount":2}]`))
	})
	mux.HandleFunc("GET /conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, "history:"+r.PathValue("id"))
		_, _ = w.Write([]byte(`{"messages":[{"id":"m1","content":"hi","senderId":"u2","conversationId":"c1"}]}`))
	})
	mux.HandleFunc("POST /conversations/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, "read:"+r.PathValue("id"))
	})
	mux.HandleFunc("POST /messages/read-all", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, "read-all")
	})
	mux.HandleFunc("POST /conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, "create:"+r.PathValue("id"))
		_, _ = w.Write([]byte(`{"id":"c9","participantA":{"id":"u1"},"participantB":{"id":"` + r.PathValue("id") + `"}}`))
	})
	mux.HandleFunc("POST /messages/send", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RecipientID string `json:"recipientId"`
			Content     string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		seen = append(seen, "send:"+body.RecipientID+":"+body.Content)
		_, _ = w.Write([]byte(`{"id":"m2","content":"` + body.Content + `","senderId":"u1","conversationId":"c1"}`))
	})
	c := testClient(t, mux)
	ctx := context.Background()

	convs, err := c.ListConversations(ctx)
	if err != nil || len(convs) != 1 || convs[0].UnreadCount != 2 {
		t.Fatalf("ListConversations() = %+v, %v", convs, err)
	}
	if convs[0].Peer("u1").Name != "Bo" {
		t.Errorf("Peer(u1) = %+v, want Bo", convs[0].Peer("u1"))
	}
	msgs, err := c.History(ctx, "c1")
	if err != nil || len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("History() = %+v, %v", msgs, err)
	}
	if err := c.MarkConversationRead(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.MarkAllRead(ctx); err != nil {
		t.Fatal(err)
	}
	conv, err := c.FindOrCreateConversation(ctx, "u7")
	if err != nil || conv.ID != "c9" {
		t.Fatalf("FindOrCreateConversation() = %+v, %v", conv, err)
	}
	msg, err := c.SendMessage(ctx, "u2", "hello")
	if err != nil || msg.ID != "m2" || msg.Content != "hello" {
		t.Fatalf("SendMessage() = %+v, %v", msg, err)
	}

	want := []string{"list", "history:c1", "read:c1", "read-all", "create:u7", "send:u2:hello"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestNon2xxBecomesStatusError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	err := c.MarkAllRead(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusBadGateway || se.Body != "boom" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestMalformedBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	if _, err := c.UnreadCount(context.Background()); err == nil {
		t.Error("UnreadCount() accepted malformed JSON")
	}
}
