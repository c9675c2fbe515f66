package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/config"
)

// Telegram 通过 Telegram Bot API 发送告警。
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

// NewTelegram 创建 Telegram 告警通道。
func NewTelegram(cfg config.TelegramConfig, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Notify 推送一条消息。发送失败只记录日志，不影响主流程。
func (t *Telegram) Notify(ctx context.Context, text string) {
	if err := t.send(ctx, text); err != nil {
		t.logger.Warn("发送告警失败", zap.Error(err))
	}
}

func (t *Telegram) send(ctx context.Context, text string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化告警内容失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造告警请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送告警请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram 返回异常: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}

var _ Notifier = (*Telegram)(nil)
