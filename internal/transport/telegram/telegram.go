package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/outbound"
	"github.com/gran-publicador/core/internal/transport"
)

// Transport sends posts through the Telegram Bot API. Bot instances are cached
// per token because one process commonly serves channels owned by several bots.
type Transport struct {
	mu      sync.Mutex
	bots    map[string]*tele.Bot
	limiter *rate.Limiter
	offline bool
	logger  *zap.Logger
}

type Option func(*Transport)

// WithOffline skips the getMe handshake when constructing bots. Used in tests.
func WithOffline() Option {
	return func(t *Transport) { t.offline = true }
}

func New(logger *zap.Logger, opts ...Option) *Transport {
	t := &Transport{
		bots: make(map[string]*tele.Bot),
		// Bot API allows ~30 messages/second across chats; stay under it.
		limiter: rate.NewLimiter(rate.Every(time.Second/25), 5),
		logger:  logger.Named("TelegramTransport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Platform() models.Platform { return models.PlatformTelegram }

func (t *Transport) bot(token string) (*tele.Bot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.bots[token]; ok {
		return b, nil
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: t.offline})
	if err != nil {
		return nil, err
	}
	t.bots[token] = b
	return b, nil
}

// chatRecipient lets both numeric chat ids and @username channel refs through
// without resolving them first.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

func (t *Transport) Deliver(ctx context.Context, req *outbound.Request) (*transport.Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bot, err := t.bot(req.Auth)
	if err != nil {
		return nil, err
	}

	to := chatRecipient(req.ChannelID)
	opts := sendOptions(req)

	var msg *tele.Message
	switch {
	case len(req.Media) > 0:
		msgs, err := bot.SendAlbum(to, buildAlbum(req), opts)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			msg = &msgs[0]
		}
	case req.Cover != nil:
		msg, err = bot.Send(to, &tele.Photo{File: fileFromLocator(req.Cover.Locator), Caption: req.Body}, opts)
	case req.Video != nil:
		msg, err = bot.Send(to, &tele.Video{File: fileFromLocator(req.Video.Locator), Caption: req.Body}, opts)
	case req.Audio != nil:
		msg, err = bot.Send(to, &tele.Audio{File: fileFromLocator(req.Audio.Locator), Caption: req.Body}, opts)
	case req.Document != nil:
		msg, err = bot.Send(to, &tele.Document{File: fileFromLocator(req.Document.Locator), Caption: req.Body}, opts)
	default:
		msg, err = bot.Send(to, req.Body, opts)
	}
	if err != nil {
		return nil, err
	}

	res := &transport.Result{}
	if msg != nil {
		res.PlatformPostID = strconv.Itoa(msg.ID)
	}
	t.logger.Info("message delivered",
		zap.String("chat", req.ChannelID),
		zap.String("platformPostId", res.PlatformPostID))
	return res, nil
}

func sendOptions(req *outbound.Request) *tele.SendOptions {
	opts := &tele.SendOptions{
		DisableNotification: req.Silent,
	}
	if req.BodyFormat == models.BodyFormatHTML {
		opts.ParseMode = tele.ModeHTML
	}
	if v, ok := req.Options["disableWebPagePreview"]; ok {
		opts.DisableWebPagePreview, _ = v.(bool)
	}
	if v, ok := req.Options["protectContent"]; ok {
		opts.Protected, _ = v.(bool)
	}
	return opts
}

// buildAlbum maps the ordered media array to an input album. Telegram attaches
// the caption to the first item.
func buildAlbum(req *outbound.Request) tele.Album {
	album := make(tele.Album, 0, len(req.Media))
	for i, item := range req.Media {
		caption := ""
		if i == 0 {
			caption = req.Body
		}
		file := fileFromLocator(item.Locator)
		switch item.Type {
		case models.MediaVideo:
			album = append(album, &tele.Video{File: file, Caption: caption})
		case models.MediaAudio:
			album = append(album, &tele.Audio{File: file, Caption: caption})
		case models.MediaDocument:
			album = append(album, &tele.Document{File: file, Caption: caption})
		default:
			album = append(album, &tele.Photo{File: file, Caption: caption})
		}
	}
	return album
}

func fileFromLocator(locator string) tele.File {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return tele.FromURL(locator)
	}
	// anything else is treated as a platform file id from an earlier upload
	return tele.File{FileID: locator}
}
