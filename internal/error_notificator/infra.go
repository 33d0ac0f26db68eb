package error_notificator

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// лимит Telegram на длину сообщения
const maxMessageLen = 4096

// Sender: часть tgbotapi.BotAPI, которой хватает для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Infra struct {
	mu      sync.RWMutex
	bot     Sender
	adminID int64
	botName string
	log     *zap.Logger
}

// NewInfra: при adminID == 0 только лог, в Telegram ничего не уходит.
func NewInfra(botName string, adminID int64, log *zap.Logger) *Infra {
	if log == nil {
		log = zap.NewNop()
	}
	return &Infra{botName: botName, adminID: adminID, log: log.Named("error_notificator")}
}

// SetBot — позволяет передать бота ПОСЛЕ того, как он инициализировался
func (i *Infra) SetBot(bot Sender) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bot = bot
}

func (i *Infra) Notify(ctx context.Context, err error, details string) error {
	i.log.Error("error reported",
		zap.String("bot", i.botName),
		zap.String("details", details),
		zap.Error(err),
	)

	i.mu.RLock()
	bot := i.bot
	i.mu.RUnlock()

	if i.adminID == 0 || bot == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	text := fmt.Sprintf(
		"❗ Ошибка в боте (%s)\n\nОшибка: %v\n\nДетали: %s",
		i.botName,
		err,
		details,
	)
	msg := tgbotapi.NewMessage(i.adminID, truncate(text, maxMessageLen))

	if _, sendErr := bot.Send(msg); sendErr != nil {
		i.log.Warn("send to admin failed", zap.Int64("admin_id", i.adminID), zap.Error(sendErr))
		return sendErr
	}
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
