package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrRejected возвращается, если Telegram отклонил сообщение (ответ 4xx).
// Повторная отправка такого сообщения бессмысленна.
var ErrRejected = errors.New("message rejected by telegram")

// TelegramOptions параметры отправителя сообщений через Bot API.
type TelegramOptions struct {
	APIURL          string
	BotToken        string
	AdminChatID     int64
	SupportUsername string
	Timeout         time.Duration
	Retries         int
}

// TelegramSender отправляет уведомления через метод sendMessage Bot API.
type TelegramSender struct {
	endpoint        string
	token           string
	adminChatID     int64
	supportUsername string
	httpClient      *retryablehttp.Client
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewTelegramSender создаёт отправителя. Без токена возвращается NopSender.
func NewTelegramSender(opts TelegramOptions, logger *zap.Logger) Sender {
	if opts.BotToken == "" {
		return NopSender{}
	}

	base := strings.TrimRight(opts.APIURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = &leveledLogger{
		sugar:  logger.Sugar().Named("telegram"),
		secret: opts.BotToken,
	}

	return &TelegramSender{
		endpoint:        fmt.Sprintf("%s/bot%s/sendMessage", base, opts.BotToken),
		token:           opts.BotToken,
		adminChatID:     opts.AdminChatID,
		supportUsername: opts.SupportUsername,
		httpClient:      client,
	}
}

// Send форматирует событие и отправляет его получателю.
func (s *TelegramSender) Send(ctx context.Context, e Event) error {
	chatID := recipient(e, s.adminChatID)
	if chatID == 0 {
		return fmt.Errorf("no recipient for %s event", e.Kind)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      formatMessage(e, s.supportUsername),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", s.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", s.redact(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", s.redact(err))
	}

	var result sendMessageResponse
	decodeErr := json.Unmarshal(data, &result)

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, result.Description)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !result.OK {
		return fmt.Errorf("%w: %s", ErrRejected, result.Description)
	}

	return nil
}

// redact убирает токен бота из текста ошибки: он входит в URL запроса.
func (s *TelegramSender) redact(err error) error {
	return errors.New(strings.ReplaceAll(err.Error(), s.token, "***"))
}

// leveledLogger адаптирует zap к интерфейсу retryablehttp.LeveledLogger.
type leveledLogger struct {
	sugar  *zap.SugaredLogger
	secret string
}

func (l *leveledLogger) clean(kv []interface{}) []interface{} {
	out := make([]interface{}, len(kv))
	for i, v := range kv {
		s := fmt.Sprint(v)
		if l.secret != "" && strings.Contains(s, l.secret) {
			out[i] = strings.ReplaceAll(s, l.secret, "***")
			continue
		}
		out[i] = v
	}
	return out
}

func (l *leveledLogger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, l.clean(kv)...) }
func (l *leveledLogger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, l.clean(kv)...) }
func (l *leveledLogger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, l.clean(kv)...) }
func (l *leveledLogger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, l.clean(kv)...) }
