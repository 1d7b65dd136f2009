package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends alert messages to Telegram chats via the bot API.
type Notifier struct {
	botToken  string
	chatID    string
	userChats map[string]string
	apiBase   string
	client    *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the bot token, a fallback chat and per-user chats.
func NewNotifier(botToken, chatID string, userChats map[string]string) *Notifier {
	return &Notifier{
		botToken:  botToken,
		chatID:    chatID,
		userChats: userChats,
		apiBase:   defaultAPIBase,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// Notify posts one alert to the chat of the payload's user.
func (n *Notifier) Notify(ctx context.Context, payload domain.NotificationPayload) error {
	if n.botToken == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	chat := n.chatFor(payload.UserID)
	if chat == "" {
		return fmt.Errorf("no telegram chat for user %s", payload.UserID)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chat)
	form.Set("text", FormatMessage(payload))
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func (n *Notifier) chatFor(userID string) string {
	if chat, ok := n.userChats[userID]; ok && chat != "" {
		return chat
	}
	return n.chatID
}

// FormatMessage renders the plain-text body of an alert notification.
func FormatMessage(p domain.NotificationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", p.Priority, p.Title)
	fmt.Fprintf(&b, "Region: %s\n", p.Region)
	if p.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", p.Address)
	}
	fmt.Fprintf(&b, "Score: %.0f/100\n", p.Score)
	if p.Value > 0 {
		fmt.Fprintf(&b, "Estimated value: $%.0f\n", p.Value)
	}
	if p.Summary != "" {
		b.WriteString("\n")
		b.WriteString(p.Summary)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nAlert %s", p.AlertID)
	return b.String()
}
