package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
)

// Limiter throttles requests per robot.
type Limiter interface {
	Wait(ctx context.Context, robot string) error
}

// DingTalkProvider posts markdown messages to DingTalk custom robots.
type DingTalkProvider struct {
	httpClient *http.Client
	limiter    Limiter
	logger     *zap.Logger
	now        func() time.Time
}

func NewDingTalkProvider(timeout time.Duration, limiter Limiter, logger *zap.Logger) *DingTalkProvider {
	return &DingTalkProvider{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}
}

// Send posts md to every target of s that accepts event. Each target is
// attempted even if an earlier one fails; the failures are joined.
func (p *DingTalkProvider) Send(ctx context.Context, md domain.Markdown, event string, s *domain.Setting) error {
	if len(s.Targets) == 0 {
		return fmt.Errorf("destination %s: %w", s.ID, domain.ErrNoTargets)
	}

	body, err := json.Marshal(MarkdownMessage{
		MsgType:  "markdown",
		Markdown: MarkdownBody{Title: md.Title, Text: md.Text},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var errs []error
	for _, target := range s.Targets {
		if !target.Accepts(event) {
			p.logger.Debug("target does not accept event",
				zap.String("destination_id", s.ID),
				zap.String("target", target.Name),
				zap.String("event", event),
			)
			continue
		}
		if err := p.post(ctx, target, body); err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", target.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *DingTalkProvider) post(ctx context.Context, target domain.Target, body []byte) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, target.URL); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	endpoint, err := SignURL(target.URL, target.Secret, p.now())
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected robot status: %d", resp.StatusCode)
	}

	var robotResp RobotResponse
	if err := json.NewDecoder(resp.Body).Decode(&robotResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if robotResp.ErrCode != 0 {
		return fmt.Errorf("robot error %d: %s", robotResp.ErrCode, robotResp.ErrMsg)
	}
	return nil
}

// SignURL appends DingTalk's timestamp and sign query parameters to rawURL.
// The signature is base64(HMAC-SHA256(secret, timestamp + "\n" + secret)).
// An empty secret returns rawURL unchanged.
func SignURL(rawURL, secret string, at time.Time) (string, error) {
	if secret == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse robot url: %w", err)
	}

	ts := strconv.FormatInt(at.UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "\n" + secret))

	q := u.Query()
	q.Set("timestamp", ts)
	q.Set("sign", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// compile-time check that DingTalkProvider implements Provider
var _ Provider = (*DingTalkProvider)(nil)
