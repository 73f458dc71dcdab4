package telegram

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const (
	defaultSendInterval = 2 * time.Second
	// Telegram refuses messages above 4096 characters.
	maxMessageRunes = 4000
)

// Sender is the subset of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts ops summaries to one Telegram chat, spacing sends apart.
type Notifier struct {
	sender   Sender
	chatID   int64
	interval time.Duration
	logger   *logging.Logger

	mu       sync.Mutex
	lastSend time.Time
}

var _ usecase.ChatNotifier = (*Notifier)(nil)

// NewBotNotifier connects to the Bot API with token; the bot is verified with getMe.
func NewBotNotifier(token string, chatID int64, logger *logging.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, crerr.Wrap(err, "create telegram bot")
	}
	bot.Debug = false
	return NewNotifier(bot, chatID, 0, logger), nil
}

func NewNotifier(sender Sender, chatID int64, interval time.Duration, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = defaultSendInterval
	}
	return &Notifier{
		sender:   sender,
		chatID:   chatID,
		interval: interval,
		logger:   logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n == nil || n.sender == nil {
		return crerr.Wrap(usecase.ErrDependencyUnavailable, "telegram notifier is not configured")
	}
	if runes := []rune(text); len(runes) > maxMessageRunes {
		text = string(runes[:maxMessageRunes]) + "..."
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if wait := n.interval - time.Since(n.lastSend); !n.lastSend.IsZero() && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	n.lastSend = time.Now()
	sent, err := n.sender.Send(msg)
	if err != nil {
		return crerr.Wrapf(err, "send telegram message chat_id=%d", n.chatID)
	}

	n.logger.InfoContext(ctx, "telegram message sent", "chat_id", n.chatID, "message_id", sent.MessageID)
	return nil
}
