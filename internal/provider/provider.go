package provider

import (
	"context"

	"github.com/notifyhub/github-relay/internal/domain"
)

// MarkdownMessage is the JSON body posted to a DingTalk robot.
type MarkdownMessage struct {
	MsgType  string       `json:"msgtype"`
	Markdown MarkdownBody `json:"markdown"`
}

type MarkdownBody struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// RobotResponse maps the robot's JSON reply. A non-zero ErrCode is a failure
// even when the HTTP status is 200.
type RobotResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Provider abstracts delivery of a rendered message to a destination's chat robots.
// Mocking this interface in tests gives full control over delivery outcomes
// without making real HTTP calls.
type Provider interface {
	Send(ctx context.Context, md domain.Markdown, event string, s *domain.Setting) error
}
