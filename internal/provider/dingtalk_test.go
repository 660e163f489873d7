package provider_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/provider"
)

type robot struct {
	mu       sync.Mutex
	messages []provider.MarkdownMessage
	queries  []url.Values
	reply    provider.RobotResponse
	status   int
}

func (r *robot) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var msg provider.MarkdownMessage
	_ = json.NewDecoder(req.Body).Decode(&msg)
	r.messages = append(r.messages, msg)
	r.queries = append(r.queries, req.URL.Query())

	if r.status != 0 {
		w.WriteHeader(r.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(r.reply)
}

func newProvider() *provider.DingTalkProvider {
	return provider.NewDingTalkProvider(time.Second, nil, zap.NewNop())
}

func TestDingTalkProvider_Send_Success(t *testing.T) {
	r := &robot{}
	srv := httptest.NewServer(r)
	defer srv.Close()

	s := &domain.Setting{ID: "d1", Targets: []domain.Target{{Name: "team", URL: srv.URL + "/robot/send?access_token=abc"}}}
	md := domain.Markdown{Title: "[hello] issue opened", Text: "#### body"}

	if err := newProvider().Send(context.Background(), md, "issues.opened", s); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(r.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(r.messages))
	}
	got := r.messages[0]
	if got.MsgType != "markdown" || got.Markdown.Title != md.Title || got.Markdown.Text != md.Text {
		t.Errorf("unexpected message: %+v", got)
	}
	if r.queries[0].Get("access_token") != "abc" {
		t.Error("existing query parameters must be preserved")
	}
	if r.queries[0].Get("sign") != "" {
		t.Error("unsigned target should not carry a sign parameter")
	}
}

func TestDingTalkProvider_Send_RobotErrCode(t *testing.T) {
	r := &robot{reply: provider.RobotResponse{ErrCode: 310000, ErrMsg: "keywords not in content"}}
	srv := httptest.NewServer(r)
	defer srv.Close()

	s := &domain.Setting{ID: "d1", Targets: []domain.Target{{Name: "team", URL: srv.URL}}}
	err := newProvider().Send(context.Background(), domain.Markdown{Title: "t"}, "issues.opened", s)
	if err == nil || !strings.Contains(err.Error(), "310000") {
		t.Fatalf("expected robot error, got %v", err)
	}
}

func TestDingTalkProvider_Send_JoinsTargetFailures(t *testing.T) {
	ok := &robot{}
	okSrv := httptest.NewServer(ok)
	defer okSrv.Close()
	bad := &robot{status: http.StatusInternalServerError}
	badSrv := httptest.NewServer(bad)
	defer badSrv.Close()

	s := &domain.Setting{ID: "d1", Targets: []domain.Target{
		{Name: "broken", URL: badSrv.URL},
		{Name: "team", URL: okSrv.URL},
	}}
	err := newProvider().Send(context.Background(), domain.Markdown{Title: "t"}, "issues.opened", s)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected failure naming the broken target, got %v", err)
	}
	if len(ok.messages) != 1 {
		t.Error("healthy target must still receive the message")
	}
}

func TestDingTalkProvider_Send_FiltersByEvent(t *testing.T) {
	r := &robot{}
	srv := httptest.NewServer(r)
	defer srv.Close()

	s := &domain.Setting{ID: "d1", Targets: []domain.Target{
		{Name: "releases", URL: srv.URL, Events: []string{"release.published"}},
	}}
	if err := newProvider().Send(context.Background(), domain.Markdown{Title: "t"}, "issues.opened", s); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(r.messages) != 0 {
		t.Error("target filtering on release events should not receive issues")
	}
}

func TestDingTalkProvider_Send_NoTargets(t *testing.T) {
	err := newProvider().Send(context.Background(), domain.Markdown{}, "issues.opened", &domain.Setting{ID: "d1"})
	if !errors.Is(err, domain.ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
}

func TestSignURL(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	signed, err := provider.SignURL("https://oapi.dingtalk.com/robot/send?access_token=x", "SECret", at)
	if err != nil {
		t.Fatalf("SignURL: %v", err)
	}
	u, _ := url.Parse(signed)
	q := u.Query()

	if q.Get("timestamp") != "1700000000000" {
		t.Errorf("timestamp = %q", q.Get("timestamp"))
	}
	mac := hmac.New(sha256.New, []byte("SECret"))
	mac.Write([]byte("1700000000000\nSECret"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if q.Get("sign") != want {
		t.Errorf("sign = %q, want %q", q.Get("sign"), want)
	}
	if q.Get("access_token") != "x" {
		t.Error("access_token lost")
	}

	plain, _ := provider.SignURL("https://example.com/hook", "", at)
	if plain != "https://example.com/hook" {
		t.Errorf("unsigned url changed: %s", plain)
	}
}
