package oversight

import (
	"context"
	"fmt"
	"log"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackReporter posts reports to one Slack channel.
type SlackReporter struct {
	client  slackClient
	channel string
}

// SlackOpts holds parameters for creating a SlackReporter.
type SlackOpts struct {
	Token   string
	Channel string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a SlackReporter.
func NewSlack(opts SlackOpts) (*SlackReporter, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("oversight: slack token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("oversight: slack channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.Token)
	}
	return &SlackReporter{client: client, channel: opts.Channel}, nil
}

func (s *SlackReporter) post(text string) {
	if _, _, err := s.client.PostMessage(s.channel, slackapi.MsgOptionText(text, false)); err != nil {
		log.Printf("oversight: post to %s: %v", s.channel, err)
	}
}

func (s *SlackReporter) ReportError(ctx context.Context, component string, err error) {
	s.post(fmt.Sprintf(":warning: %s: %v", component, err))
}

func (s *SlackReporter) ReportPanic(ctx context.Context, component string, recovered interface{}, stack []byte) {
	text := formatPanic(component, recovered)
	if len(stack) > 0 {
		if len(stack) > 2000 {
			stack = stack[:2000]
		}
		text += fmt.Sprintf("\n```%s```", stack)
	}
	s.post(text)
}

func (s *SlackReporter) Announce(ctx context.Context, title, body string) {
	s.post(fmt.Sprintf("*%s*\n%s", title, body))
}
