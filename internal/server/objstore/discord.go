package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
)

// DefaultDiscordAPIBase is the REST endpoint chunks are sent through.
const DefaultDiscordAPIBase = "https://discord.com/api/v10"

// maxAttachmentBytes is the platform cap on one message attachment. Chunk
// size must stay below it with headroom for the IV and protocol overhead.
const maxAttachmentBytes = 10 * 1024 * 1024

// DiscordStore stores chunks as message attachments in a single channel.
// The returned handle is the message id.
type DiscordStore struct {
	http      *http.Client
	baseURL   string
	botToken  string
	channelID string
	log       logging.Logger
}

func NewDiscordStore(baseURL, botToken, channelID string, timeout time.Duration, log logging.Logger) *DiscordStore {
	if baseURL == "" {
		baseURL = DefaultDiscordAPIBase
	}
	return &DiscordStore{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		botToken:  botToken,
		channelID: channelID,
		log:       log.With("module", "discord_store"),
	}
}

// Connect fetches the configured channel, validating both the bot token and
// the channel id before any chunk work begins.
func (s *DiscordStore) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/channels/%s", s.baseURL, s.channelID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := s.checkResponse(resp); err != nil {
		return err
	}

	s.log.Info(ctx, "connected to channel", "channel_id", s.channelID)
	return nil
}

type discordMessage struct {
	ID          string `json:"id"`
	Attachments []struct {
		URL string `json:"url"`
	} `json:"attachments"`
}

// Upload posts payload as an attachment to the channel and returns the
// created message id.
func (s *DiscordStore) Upload(ctx context.Context, name string, payload []byte) (string, error) {
	if len(payload) > maxAttachmentBytes {
		return "", fmt.Errorf("payload of %d bytes exceeds the attachment limit", len(payload))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("files[0]", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/channels/%s/messages", s.baseURL, s.channelID), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := s.checkResponse(resp); err != nil {
		return "", err
	}

	var msg discordMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return "", fmt.Errorf("decode message: %w", err)
	}
	if msg.ID == "" {
		return "", fmt.Errorf("message response carried no id")
	}

	s.log.Debug(ctx, "chunk uploaded", "name", name, "handle", msg.ID)
	return msg.ID, nil
}

// Fetch resolves the message's attachment URL and downloads the attachment
// bytes. The attachment CDN URL is short-lived, so it is resolved on every
// call rather than persisted.
func (s *DiscordStore) Fetch(ctx context.Context, handle string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/channels/%s/messages/%s", s.baseURL, s.channelID, handle), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := s.checkResponse(resp); err != nil {
		return nil, err
	}

	var msg discordMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if len(msg.Attachments) == 0 || msg.Attachments[0].URL == "" {
		return nil, fmt.Errorf("message %s carries no attachment", handle)
	}

	return s.fetchAttachment(ctx, msg.Attachments[0].URL)
}

func (s *DiscordStore) fetchAttachment(ctx context.Context, url string) ([]byte, error) {
	// Attachment CDN URLs are unauthenticated.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := s.checkResponse(resp); err != nil {
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

// Delete removes the message (and with it, the attachment) by handle.
func (s *DiscordStore) Delete(ctx context.Context, handle string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/channels/%s/messages/%s", s.baseURL, s.channelID, handle), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := s.checkResponse(resp); err != nil {
		return err
	}

	s.log.Debug(ctx, "message deleted", "handle", handle)
	return nil
}

// checkResponse maps non-2xx responses to typed errors. 429 carries a JSON
// retry_after value in seconds which is surfaced as a RateLimitError.
func (s *DiscordStore) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		var rl struct {
			RetryAfter float64 `json:"retry_after"`
		}
		if err := json.Unmarshal(body, &rl); err == nil && rl.RetryAfter > 0 {
			return &RateLimitError{RetryAfter: time.Duration(rl.RetryAfter * float64(time.Second))}
		}
		return &RateLimitError{RetryAfter: time.Second}
	}

	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}
