package slackbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/directory"
)

const (
	textOptedOut     = "✅ You've been opted out of coffee chat pairings. Use `/coffee opt-in` to rejoin anytime."
	textOptedIn      = "✅ Welcome back! You're now opted in for coffee chat pairings."
	textSnoozedWeek  = "😴 You've been snoozed from coffee chats for 1 week. You'll automatically rejoin next week."
	textSnoozedMonth = "😴 You've been snoozed from coffee chats for 1 month. You'll automatically rejoin next month."
	textNotMember    = "❌ You're not registered in the coffee chat system. Contact an admin."
	textFailed       = "Something went wrong updating your coffee chat preferences. Please try again."
	textUnknownAct   = "Unknown action"
	textUnknownCmd   = "Unknown command"
	textHelp         = "*Coffee Chat Commands:*\n" +
		"• `/coffee status` - Check your current status\n" +
		"• `/coffee opt-out` - Opt out of all pairings\n" +
		"• `/coffee opt-in` - Opt back in to pairings\n" +
		"• `/coffee snooze` - Temporarily pause pairings"
)

var actionReplies = map[string]string{
	directory.ActionOptOut:      textOptedOut,
	directory.ActionSnoozeWeek:  textSnoozedWeek,
	directory.ActionSnoozeMonth: textSnoozedMonth,
}

// Preferences is the directory surface the webhooks drive.
type Preferences interface {
	ApplyAction(ctx context.Context, slackID, actionID string) (bool, error)
	OptOut(ctx context.Context, slackID string) (*db.SlackUser, error)
	OptIn(ctx context.Context, slackID string) (*db.SlackUser, error)
	Status(ctx context.Context, slackID string) (directory.Status, error)
}

// Handler serves Slack interactivity and slash command webhooks.
type Handler struct {
	prefs         Preferences
	signingSecret string
	log           *slog.Logger
}

func NewHandler(prefs Preferences, signingSecret string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{prefs: prefs, signingSecret: signingSecret, log: log}
}

// Register mounts the webhook routes on r behind signature verification.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/slack", h.Verify())
	g.POST("/interactions", h.Interactions())
	g.POST("/commands", h.Commands())
}

// Verify rejects requests whose Slack signature does not match the signing
// secret. With no secret configured every request passes.
func (h *Handler) Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.signingSecret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sv, err := slack.NewSecretsVerifier(c.Request.Header, h.signingSecret)
		if err == nil {
			if _, err = sv.Write(body); err == nil {
				err = sv.Ensure()
			}
		}
		if err != nil {
			h.log.Warn("slack signature rejected", "path", c.FullPath(), "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

// Interactions handles block_actions from the buttons on pairing messages
// and the snooze menu.
func (h *Handler) Interactions() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.PostForm("payload")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
			return
		}
		var cb slack.InteractionCallback
		if err := json.Unmarshal([]byte(raw), &cb); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
			ephemeral(c, textUnknownAct)
			return
		}

		actionID := cb.ActionCallback.BlockActions[0].ActionID
		known, err := h.prefs.ApplyAction(c.Request.Context(), cb.User.ID, actionID)
		switch {
		case err != nil:
			ephemeral(c, h.failure(err, cb.User.ID, actionID))
		case !known:
			ephemeral(c, textUnknownAct)
		default:
			h.log.Info("slack action applied", "slack_id", cb.User.ID, "action", actionID)
			ephemeral(c, actionReplies[actionID])
		}
	}
}

// Commands handles the /coffee slash command.
func (h *Handler) Commands() gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd, err := slack.SlashCommandParse(c.Request)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if cmd.Command != "/coffee" {
			ephemeral(c, textUnknownCmd)
			return
		}

		ctx := c.Request.Context()
		switch arg := strings.ToLower(strings.TrimSpace(cmd.Text)); arg {
		case "opt-out":
			if _, err := h.prefs.OptOut(ctx, cmd.UserID); err != nil {
				ephemeral(c, h.failure(err, cmd.UserID, arg))
				return
			}
			ephemeral(c, textOptedOut)
		case "opt-in":
			if _, err := h.prefs.OptIn(ctx, cmd.UserID); err != nil {
				ephemeral(c, h.failure(err, cmd.UserID, arg))
				return
			}
			ephemeral(c, textOptedIn)
		case "snooze":
			c.JSON(http.StatusOK, slack.Msg{
				ResponseType: slack.ResponseTypeEphemeral,
				Blocks:       slack.Blocks{BlockSet: SnoozeMenu()},
			})
		case "status":
			st, err := h.prefs.Status(ctx, cmd.UserID)
			if err != nil {
				ephemeral(c, h.failure(err, cmd.UserID, arg))
				return
			}
			ephemeral(c, "*Coffee Chat Status:* "+describe(st))
		default:
			ephemeral(c, textHelp)
		}
	}
}

// SnoozeMenu is the block set offered by `/coffee snooze`.
func SnoozeMenu() []slack.Block {
	button := func(id, label string) *slack.ButtonBlockElement {
		return slack.NewButtonBlockElement(id, id, slack.NewTextBlockObject(slack.PlainTextType, label, false, false))
	}
	return []slack.Block{
		section("How long would you like to snooze coffee chat pairings?"),
		slack.NewActionBlock("coffee_chat_snooze",
			button(directory.ActionSnoozeWeek, "1 Week").WithStyle(slack.StylePrimary),
			button(directory.ActionSnoozeMonth, "1 Month"),
			button(directory.ActionOptOut, "Opt Out Completely").WithStyle(slack.StyleDanger),
		),
	}
}

func describe(st directory.Status) string {
	switch st.State {
	case directory.StateOptedOut:
		return "❌ Opted out - Use `/coffee opt-in` to rejoin"
	case directory.StateSnoozed:
		return fmt.Sprintf("😴 Snoozed until %s - %s", st.Until.Format("Jan 2, 2006"), st.Reason)
	}
	return "✅ Active - You'll be included in coffee chat pairings"
}

func (h *Handler) failure(err error, slackID, what string) string {
	if errors.Is(err, directory.ErrUserNotFound) {
		return textNotMember
	}
	h.log.Error("slack preference update failed", "slack_id", slackID, "request", what, "err", err)
	return textFailed
}

func ephemeral(c *gin.Context, text string) {
	c.JSON(http.StatusOK, slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text})
}
