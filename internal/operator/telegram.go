package operator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"marketwatch/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers operator commands in one chat and reports session transitions.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	chatID int64
	svc    *Service
	logger *zap.Logger
}

func NewBot(token, chatID string, svc *Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	b, err := newBot(api, chatID, svc, logger)
	if err != nil {
		return nil, err
	}
	b.api = api
	return b, nil
}

func newBot(sender Sender, chatID string, svc *Service, logger *zap.Logger) (*Bot, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{sender: sender, chatID: id, svc: svc, logger: logger.Named("telegram")}, nil
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil && update.Message.IsCommand() {
				b.handle(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Chat.ID != b.chatID {
		b.logger.Debug("ignoring command from foreign chat", zap.String("command", msg.Command()))
		return
	}
	b.reply(b.Execute(ctx, msg.Command(), msg.CommandArguments()))
}

// Execute runs one command and returns the reply text.
func (b *Bot) Execute(ctx context.Context, command, args string) string {
	switch command {
	case "ping":
		return "pong"
	case "start":
		if err := b.svc.Start(ctx); err != nil {
			return "start failed: " + err.Error()
		}
		return "monitor started"
	case "stop":
		if err := b.svc.Stop(); err != nil {
			return "stop failed: " + err.Error()
		}
		return "stopping monitor"
	case "url":
		args = strings.TrimSpace(args)
		if args == "" {
			return "listing: " + b.svc.ListingURL()
		}
		if err := b.svc.SetListing(args); err != nil {
			return err.Error()
		}
		return "listing set to " + args
	case "status":
		return formatOverview(b.svc.Overview())
	}
	return "commands: /start /stop /url <listing> /status /ping"
}

// NotifyState sends a short message for each session transition.
func (b *Bot) NotifyState(st session.Status) {
	text := "session " + st.StateName
	if st.State == session.Idle && st.LastError != "" {
		text += ": " + st.LastError
	}
	b.reply(text)
}

func (b *Bot) reply(text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		b.logger.Warn("telegram send failed", zap.Error(err))
	}
}

func formatOverview(ov Overview) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "state: %s\n", ov.Session.StateName)
	fmt.Fprintf(&sb, "listing: %s\n", ov.ListingURL)
	fmt.Fprintf(&sb, "markets: %d, prices: %d, highlighted: %d", len(ov.Markets), ov.StoredPrices, ov.PendingHighlights)
	if ov.Session.LastError != "" {
		fmt.Fprintf(&sb, "\nlast error: %s", ov.Session.LastError)
	}
	return sb.String()
}
