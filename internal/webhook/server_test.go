package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Bayashat/zerde-bot/internal/config"
)

type recordingQueue struct {
	payloads [][]byte
}

func (r *recordingQueue) Enqueue(_ context.Context, payload []byte) error {
	r.payloads = append(r.payloads, payload)
	return nil
}

func newTestServer(t *testing.T, secret string) (*httptest.Server, *recordingQueue) {
	t.Helper()
	q := &recordingQueue{}
	router := NewRouter(q, config.WebhookConfig{Path: "/webhook", SecretToken: secret})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, q
}

func post(t *testing.T, url, secret, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRelevantUpdateIsEnqueued(t *testing.T) {
	srv, q := newTestServer(t, "s3cret")

	body := `{"update_id":1,"message":{"text":"/voteban","chat":{"id":100}}}`
	resp := post(t, srv.URL+"/webhook", "s3cret", body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(q.payloads) != 1 || string(q.payloads[0]) != body {
		t.Fatalf("payloads = %q", q.payloads)
	}
}

func TestSecretMismatchStillReturns200ButDrops(t *testing.T) {
	srv, q := newTestServer(t, "s3cret")

	for _, secret := range []string{"", "wrong"} {
		resp := post(t, srv.URL+"/webhook", secret, `{"callback_query":{"id":"1"}}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200 for secret %q", resp.StatusCode, secret)
		}
	}
	if len(q.payloads) != 0 {
		t.Fatalf("unauthorized updates must be dropped: %q", q.payloads)
	}
}

func TestIrrelevantUpdatesAreFiltered(t *testing.T) {
	srv, q := newTestServer(t, "")

	bodies := []string{
		`{"update_id":2,"message":{"text":"hello there","chat":{"id":100}}}`,
		`{"update_id":3,"edited_message":{"text":"/late edit"}}`,
		`not json`,
		`{}`,
	}
	for _, body := range bodies {
		resp := post(t, srv.URL+"/webhook", "", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d for %q", resp.StatusCode, body)
		}
	}
	if len(q.payloads) != 0 {
		t.Fatalf("irrelevant updates enqueued: %q", q.payloads)
	}
}

func TestRelevanceVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"callback", `{"callback_query":{"id":"1","data":"verify_42"}}`, true},
		{"join", `{"message":{"new_chat_members":[{"id":42}]}}`, true},
		{"command", `{"message":{"text":"/start"}}`, true},
		{"command with caption", `{"message":{"caption":"/stats"}}`, true},
		{"command with leading space", `{"message":{"text":"  /ping"}}`, true},
		{"plain text", `{"message":{"text":"voteban"}}`, false},
		{"no message", `{"update_id":1}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRelevant([]byte(tc.body)); got != tc.want {
				t.Fatalf("isRelevant = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
