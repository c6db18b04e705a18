package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"teleshop/config"
	"teleshop/notify"
)

const (
	defaultTimeout = 10 * time.Second
	defaultPhoto   = "photo.jpg"

	// maxPhotoBytes is the Bot API limit for photos sent by upload.
	maxPhotoBytes = 10 << 20
)

// Client sends order notifications through the Telegram Bot API.
type Client struct {
	api            *tgbotapi.BotAPI
	http           *http.Client
	uploadFallback bool
	maxPhotoBytes  int64
	logger         *zap.Logger
}

var _ notify.Sender = (*Client)(nil)

func New(cfg config.TelegramConfig, logger *zap.Logger) (*Client, error) {
	return NewWithEndpoint(cfg, tgbotapi.APIEndpoint, logger)
}

// NewWithEndpoint is New against a different Bot API server. endpoint has the
// same shape as tgbotapi.APIEndpoint.
func NewWithEndpoint(cfg config.TelegramConfig, endpoint string, logger *zap.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Client{
		api:            api,
		http:           httpClient,
		uploadFallback: cfg.UploadFallback,
		maxPhotoBytes:  maxPhotoBytes,
		logger:         logger,
	}, nil
}

// API exposes the underlying bot so the command front end shares one connection.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

func (c *Client) SendText(ctx context.Context, recipient, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", notify.ErrChannelUnavailable, recipient, err)
	}
	var msg tgbotapi.MessageConfig
	if chatID, ok := parseChatID(recipient); ok {
		msg = tgbotapi.NewMessage(chatID, body)
	} else {
		msg = tgbotapi.NewMessageToChannel(channelName(recipient), body)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %v", notify.ErrChannelUnavailable, recipient, err)
	}
	return nil
}

// SendMedia sends one photo. Inline data is uploaded as is; a URL is handed to
// Telegram first and, if Telegram answers 400 for it, downloaded and uploaded
// when the fallback is enabled.
func (c *Client) SendMedia(ctx context.Context, recipient string, media notify.Media) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", notify.ErrMediaUnavailable, recipient, err)
	}
	if len(media.Data) > 0 {
		name := media.Name
		if name == "" {
			name = defaultPhoto
		}
		if err := c.sendPhoto(recipient, tgbotapi.FileBytes{Name: name, Bytes: media.Data}); err != nil {
			return fmt.Errorf("%w: %s: upload %s: %v", notify.ErrMediaUnavailable, recipient, name, err)
		}
		return nil
	}
	if media.URL == "" {
		return fmt.Errorf("%w: %s: empty media", notify.ErrMediaUnavailable, recipient)
	}

	err := c.sendPhoto(recipient, tgbotapi.FileURL(media.URL))
	if err == nil {
		return nil
	}
	if !c.uploadFallback || !isBadRequest(err) {
		return fmt.Errorf("%w: %s: %s: %v", notify.ErrMediaUnavailable, recipient, media.URL, err)
	}
	c.logger.Debug("photo url rejected, uploading instead",
		zap.String("recipient", recipient),
		zap.String("url", media.URL),
		zap.Error(err),
	)
	if err := c.uploadFromURL(ctx, recipient, media.URL); err != nil {
		return fmt.Errorf("%w: %s: %s: %v", notify.ErrMediaUnavailable, recipient, media.URL, err)
	}
	return nil
}

func (c *Client) sendPhoto(recipient string, file tgbotapi.RequestFileData) error {
	var photo tgbotapi.PhotoConfig
	if chatID, ok := parseChatID(recipient); ok {
		photo = tgbotapi.NewPhoto(chatID, file)
	} else {
		photo = tgbotapi.NewPhotoToChannel(channelName(recipient), file)
	}
	_, err := c.api.Send(photo)
	return err
}

// uploadFromURL downloads the image into a temp file and uploads it. The temp
// file is removed whatever happens.
func (c *Client) uploadFromURL(ctx context.Context, recipient, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "order-photo-*"+path.Ext(rawURL))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, c.maxPhotoBytes+1))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("download: %w", err)
	}
	if n > c.maxPhotoBytes {
		tmp.Close()
		return fmt.Errorf("download: photo larger than %d bytes", c.maxPhotoBytes)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return c.sendPhoto(recipient, tgbotapi.FilePath(tmp.Name()))
}

// isBadRequest reports whether Telegram rejected the request itself (for a photo
// URL: unreachable, wrong type or too large), as opposed to the chat or rate limits.
func isBadRequest(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest
}

func parseChatID(recipient string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	return id, err == nil
}

func channelName(recipient string) string {
	name := strings.TrimSpace(recipient)
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return name
}
