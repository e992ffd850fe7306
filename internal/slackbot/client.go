// Package slackbot is the Slack side of the coffee chat bot: private message
// delivery, roster listing and the interactive webhook handlers.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/oggyb/coffee-chat/internal/config"
	"github.com/oggyb/coffee-chat/internal/pairing"
	"github.com/oggyb/coffee-chat/internal/repository"
)

// ErrNoToken means no bot token was configured.
var ErrNoToken = errors.New("slack bot token not configured")

// Client talks to the Slack Web API.
type Client struct {
	api   *slack.Client
	token string
	log   *slog.Logger
}

// NewClient builds a Web API client. APIURL overrides the endpoint (tests, proxies)
// and must end with a slash.
func NewClient(cfg config.SlackConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		url := cfg.APIURL
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		opts = append(opts, slack.OptionAPIURL(url))
	}
	return &Client{api: slack.New(cfg.BotToken, opts...), token: cfg.BotToken, log: log}
}

// SendDirectMessage opens (or reuses) the IM channel with slackID and posts
// msg there. It returns the message timestamp.
func (c *Client) SendDirectMessage(ctx context.Context, slackID string, msg pairing.Message) (string, error) {
	if c.token == "" {
		return "", ErrNoToken
	}

	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users:    []string{slackID},
		ReturnIM: true,
	})
	if err != nil {
		return "", fmt.Errorf("open conversation: %w", err)
	}

	_, ts, err := c.api.PostMessageContext(ctx, ch.ID,
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionBlocks(Blocks(msg)...),
	)
	if err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	c.log.Debug("direct message sent", "slack_id", slackID, "channel", ch.ID, "ts", ts)
	return ts, nil
}

// Blocks lays out an introduction: headline, body, divider, the preferences
// hint and one button per action.
func Blocks(msg pairing.Message) []slack.Block {
	blocks := []slack.Block{
		section(msg.Headline),
		section(msg.Body),
		slack.NewDividerBlock(),
	}
	if msg.Footer != "" {
		blocks = append(blocks, section(msg.Footer))
	}
	if len(msg.Actions) > 0 {
		elems := make([]slack.BlockElement, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			btn := slack.NewButtonBlockElement(a.ID, a.ID, slack.NewTextBlockObject(slack.PlainTextType, a.Label, false, false))
			switch a.Style {
			case "primary":
				btn = btn.WithStyle(slack.StylePrimary)
			case "danger":
				btn = btn.WithStyle(slack.StyleDanger)
			}
			elems = append(elems, btn)
		}
		blocks = append(blocks, slack.NewActionBlock("coffee_chat_prefs", elems...))
	}
	return blocks
}

func section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

// Members lists human, non-deleted workspace members, or only those in
// channelID when it is set.
func (c *Client) Members(ctx context.Context, channelID string) ([]repository.Member, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	var users []slack.User
	if channelID == "" {
		all, err := c.api.GetUsersContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = all
	} else {
		ids, err := c.channelMemberIDs(ctx, channelID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			u, err := c.api.GetUserInfoContext(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("user info %s: %w", id, err)
			}
			users = append(users, *u)
		}
	}

	out := make([]repository.Member, 0, len(users))
	for _, u := range users {
		if u.IsBot || u.Deleted || u.ID == "USLACKBOT" {
			continue
		}
		out = append(out, repository.Member{SlackID: u.ID, Name: displayName(u), Email: u.Profile.Email})
	}
	return out, nil
}

func (c *Client) channelMemberIDs(ctx context.Context, channelID string) ([]string, error) {
	params := &slack.GetUsersInConversationParameters{ChannelID: channelID, Limit: 200}
	var ids []string
	for {
		page, next, err := c.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list members of %s: %w", channelID, err)
		}
		ids = append(ids, page...)
		if next == "" {
			return ids, nil
		}
		params.Cursor = next
	}
}

func displayName(u slack.User) string {
	switch {
	case u.RealName != "":
		return u.RealName
	case u.Profile.RealName != "":
		return u.Profile.RealName
	}
	return u.Name
}
