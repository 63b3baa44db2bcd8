package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/stratsim/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if u, ok := cfg.Params["api_url"].(string); ok && u != "" {
		t.apiURL = strings.TrimRight(u, "/")
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.apiURL == "" {
		t.apiURL = defaultAPIURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, s notifier.Summary) error {
	return t.sendMessage(ctx, formatSummary(s))
}

func formatSummary(s notifier.Summary) string {
	var sb strings.Builder

	emoji := "📈"
	if s.ProfitLoss < 0 {
		emoji = "📉"
	}
	if s.Bankrupt {
		emoji = "💥"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* - %s\n", emoji, s.Symbol, s.Strategy))
	sb.WriteString(fmt.Sprintf("🗓 %s to %s\n", s.Start.Format(time.DateOnly), s.End.Format(time.DateOnly)))
	sb.WriteString(fmt.Sprintf("💰 P&L: %.2f (%.2f%%)\n", s.ProfitLoss, s.Return))
	sb.WriteString(fmt.Sprintf("🏦 Account: %.2f → %.2f\n", s.InitialAccount, s.FinalAccount))
	sb.WriteString(fmt.Sprintf("🎯 Trades: %d, win rate %.1f%%", s.Trades, s.WinRate))
	if s.Bankrupt {
		sb.WriteString("\n⚠️ Account went bankrupt")
	}

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
