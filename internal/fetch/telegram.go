package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appLog "sportcal/internal/log"
)

// TelegramSource acquires the newest schedule image posted to a channel
// the bot is a member of, downloads it via getFile and feeds it to OCR.
type TelegramSource struct {
	bot       *tgbotapi.BotAPI
	channelID int64
	ocr       OCR
	client    *http.Client
}

func NewTelegramSource(token string, channelID int64, ocr OCR) (*TelegramSource, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, &Error{Op: "telegram auth", Err: err}
	}
	bot.Debug = false
	appLog.Info("telegram source ready", "account", bot.Self.UserName, "channel_id", channelID)

	return &TelegramSource{
		bot:       bot,
		channelID: channelID,
		ocr:       ocr,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Text fetches the latest channel photo and OCRs it. Telegram's 429
// responses carry a retry_after hint which is passed through so the
// retry loop can honor it.
func (s *TelegramSource) Text(ctx context.Context) (string, error) {
	fileID, err := s.latestPhotoFileID()
	if err != nil {
		return "", err
	}

	url, err := s.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", wrapTelegramError("resolve file URL", err)
	}

	image, err := downloadImage(ctx, s.client, url)
	if err != nil {
		return "", err
	}

	return s.ocr.ExtractText(ctx, image)
}

// latestPhotoFileID walks pending channel-post updates newest-first and
// returns the file ID of the largest rendition of the most recent photo.
func (s *TelegramSource) latestPhotoFileID() (string, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 0
	u.AllowedUpdates = []string{"channel_post"}

	updates, err := s.bot.GetUpdates(u)
	if err != nil {
		return "", wrapTelegramError("get updates", err)
	}

	for i := len(updates) - 1; i >= 0; i-- {
		post := updates[i].ChannelPost
		if post == nil || post.Chat == nil || post.Chat.ID != s.channelID {
			continue
		}
		if len(post.Photo) == 0 {
			continue
		}
		// Photo sizes are ordered smallest to largest.
		return post.Photo[len(post.Photo)-1].FileID, nil
	}

	return "", &Error{Op: "find schedule photo", Err: errors.New("no photo post found in channel updates")}
}

func wrapTelegramError(op string, err error) *Error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &Error{
			Op:          "telegram " + op,
			RateLimited: true,
			RetryAfter:  time.Duration(apiErr.RetryAfter) * time.Second,
			Err:         err,
		}
	}
	return &Error{Op: "telegram " + op, Err: err}
}

// downloadImage fetches image bytes over HTTP. A 429 response is
// reported as rate limited, honoring any Retry-After header.
func downloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Op: "download image", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Op: "download image", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{Op: "download image", Err: err}
		}
		return body, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		var hint time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				hint = time.Duration(secs) * time.Second
			}
		}
		return nil, &Error{
			Op:          "download image",
			RateLimited: true,
			RetryAfter:  hint,
			Err:         fmt.Errorf("unexpected status %s", resp.Status),
		}

	default:
		return nil, &Error{Op: "download image", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
}
