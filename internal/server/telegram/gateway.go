// Package telegram connects the batch service to the Telegram Bot API:
// uploads and commands come in as updates, batches go out as media groups.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/services"
)

const (
	replyGreeting    = "Hi! Admins: send photos or videos, then use /done to create a link. Anyone who opens the link receives all the files."
	replyBuffered    = "Saved (%d pending). Send more or use /done to create a link."
	replyNothing     = "There are no files to publish yet."
	replyDone        = "Upload complete! Link: " + common.StartLinkFormat
	replyStatus      = "%d file(s) pending."
	replyInvalidCode = "Invalid or expired code."
	replySaveFailed  = "Could not save the batch right now. Your files are kept, try /done again later."
	replyNoCode      = "Could not allocate a link code, try /done again."
	replyInterrupted = "Delivery was interrupted, please open the link again."
)

// BotAPI is the subset of *tgbotapi.BotAPI the gateway sends through.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Service is the batch lifecycle the gateway drives.
type Service interface {
	Allowed(uploaderID int64) bool
	Pending(uploaderID int64) int
	AppendItem(ctx context.Context, uploaderID int64, item models.MediaReference) (int, error)
	Finalize(ctx context.Context, uploaderID int64) (string, error)
	Deliver(ctx context.Context, code string, send services.SendFunc) (int, error)
}

type Gateway struct {
	bot      BotAPI
	username string
	svc      Service
	logger   logging.Logger
}

// NewGateway returns a gateway that replies through bot. username is the
// bot's public name used in start links.
func NewGateway(bot BotAPI, username string, svc Service, l logging.Logger) *Gateway {
	return &Gateway{
		bot:      bot,
		username: username,
		svc:      svc,
		logger:   l.With("module", "telegram"),
	}
}

// Run handles updates until ctx is done or the channel is closed, then
// waits for queued handlers. Updates from one sender are handled in the
// order they arrived, so uploads land in the session before a following
// /done.
func (g *Gateway) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	d := newDispatcher(func(u tgbotapi.Update) {
		g.HandleUpdate(ctx, u)
	})
	defer d.wait()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info(ctx, "gateway stopping")
			return
		case update, ok := <-updates:
			if !ok {
				g.logger.Info(ctx, "updates channel closed")
				return
			}
			d.dispatch(update)
		}
	}
}

// HandleUpdate dispatches a single update. Errors are logged and, where the
// user can act on them, answered in chat.
func (g *Gateway) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	log := g.logger.With(
		"request_id", uuid.NewString(),
		"update_id", update.UpdateID,
		"user_id", msg.From.ID,
		"chat_id", msg.Chat.ID,
	)

	var err error
	switch {
	case msg.IsCommand():
		err = g.handleCommand(ctx, log, msg)
	case msg.Video != nil || len(msg.Photo) > 0:
		err = g.handleMedia(ctx, log, msg)
	}
	if err != nil {
		log.Error(ctx, "update failed", "error", err)
	}
}

func (g *Gateway) handleCommand(ctx context.Context, log logging.Logger, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return g.handleStart(ctx, log, msg)
	case "done":
		return g.handleDone(ctx, log, msg)
	case "status":
		if !g.svc.Allowed(msg.From.ID) {
			return nil
		}
		return g.reply(msg.Chat.ID, fmt.Sprintf(replyStatus, g.svc.Pending(msg.From.ID)))
	default:
		return nil
	}
}

func (g *Gateway) handleStart(ctx context.Context, log logging.Logger, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return g.reply(msg.Chat.ID, replyGreeting)
	}

	code := args[0]
	chatID := msg.Chat.ID
	sent, err := g.svc.Deliver(ctx, code, func(ctx context.Context, group []models.MediaReference) error {
		return g.sendGroup(chatID, group)
	})
	switch {
	case err == nil:
		log.Info(ctx, "batch sent", "code", code, "groups", sent)
		return nil
	case errors.Is(err, common.ErrorInvalidCode):
		return g.reply(chatID, replyInvalidCode)
	case errors.Is(err, common.ErrorPersistence):
		return errors.Join(err, g.reply(chatID, replyInterrupted))
	default:
		if sent > 0 {
			return errors.Join(err, g.reply(chatID, replyInterrupted))
		}
		return err
	}
}

func (g *Gateway) handleDone(ctx context.Context, log logging.Logger, msg *tgbotapi.Message) error {
	if !g.svc.Allowed(msg.From.ID) {
		return nil
	}

	code, err := g.svc.Finalize(ctx, msg.From.ID)
	switch {
	case err == nil:
		log.Info(ctx, "link issued", "code", code)
		return g.reply(msg.Chat.ID, fmt.Sprintf(replyDone, g.username, code))
	case errors.Is(err, common.ErrorEmptySession):
		return g.reply(msg.Chat.ID, replyNothing)
	case errors.Is(err, common.ErrorExhaustedKeyspace):
		return errors.Join(err, g.reply(msg.Chat.ID, replyNoCode))
	default:
		return errors.Join(err, g.reply(msg.Chat.ID, replySaveFailed))
	}
}

func (g *Gateway) handleMedia(ctx context.Context, log logging.Logger, msg *tgbotapi.Message) error {
	if !g.svc.Allowed(msg.From.ID) {
		return nil
	}

	var pending int
	for _, item := range mediaFromMessage(msg) {
		n, err := g.svc.AppendItem(ctx, msg.From.ID, item)
		if err != nil {
			return err
		}
		pending = n
	}
	log.Debug(ctx, "media buffered", "pending", pending)
	return g.reply(msg.Chat.ID, fmt.Sprintf(replyBuffered, pending))
}

// mediaFromMessage extracts the references carried by msg: the video, if
// any, and the largest photo size.
func mediaFromMessage(msg *tgbotapi.Message) []models.MediaReference {
	var items []models.MediaReference
	if msg.Video != nil && msg.Video.FileID != "" {
		items = append(items, models.MediaReference{Kind: models.KindVideo, ExternalID: msg.Video.FileID})
	}
	if len(msg.Photo) > 0 {
		if p := largestPhoto(msg.Photo); p.FileID != "" {
			items = append(items, models.MediaReference{Kind: models.KindPhoto, ExternalID: p.FileID})
		}
	}
	return items
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height ||
			(s.Width*s.Height == best.Width*best.Height && s.FileSize > best.FileSize) {
			best = s
		}
	}
	return best
}

func (g *Gateway) reply(chatID int64, text string) error {
	if _, err := g.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// sendGroup sends one delivery group. Telegram media groups need at least
// two items, so a single item goes out as a plain photo or video.
func (g *Gateway) sendGroup(chatID int64, group []models.MediaReference) error {
	if len(group) == 1 {
		item := group[0]
		file := tgbotapi.FileID(item.ExternalID)
		var c tgbotapi.Chattable
		switch item.Kind {
		case models.KindVideo:
			c = tgbotapi.NewVideo(chatID, file)
		default:
			c = tgbotapi.NewPhoto(chatID, file)
		}
		if _, err := g.bot.Send(c); err != nil {
			return fmt.Errorf("send %s: %w", item.Kind, err)
		}
		return nil
	}

	media := make([]interface{}, 0, len(group))
	for _, item := range group {
		file := tgbotapi.FileID(item.ExternalID)
		switch item.Kind {
		case models.KindVideo:
			media = append(media, tgbotapi.NewInputMediaVideo(file))
		default:
			media = append(media, tgbotapi.NewInputMediaPhoto(file))
		}
	}
	if _, err := g.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
		return fmt.Errorf("send media group: %w", err)
	}
	return nil
}
