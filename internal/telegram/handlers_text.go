package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/voice_bot/internal/speech"
)

const voiceCaption = "Ответ от бота"

func (app *BotApp) handleText(ctx context.Context, chatID int64, text string) {
	app.log.Infof("[text] start chatID=%d chars=%d", chatID, len([]rune(text)))

	app.send(tgbotapi.NewMessage(chatID, "Текст получен"))

	// === 1. текст -> аудио ===
	art, err := app.speech.Synthesize(ctx, text, speech.Options{})
	if err != nil {
		app.log.Errorf("[text] synth fail chatID=%d: %v", chatID, err)
		if errors.Is(err, speech.ErrInvalidInput) {
			app.send(tgbotapi.NewMessage(chatID, "⚠️ Нечего озвучивать."))
			return
		}
		app.notify(ctx, err, fmt.Sprintf("Ошибка синтеза\nЧат: %d\nТекст: %q", chatID, text))
		app.send(tgbotapi.NewMessage(chatID, "⚠️ Не удалось озвучить текст."))
		return
	}
	defer func() {
		if err := os.Remove(art.Path); err != nil {
			app.log.Warnf("[text] remove %s: %v", art.Path, err)
		}
	}()

	// === 2. отправляем голос ===
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FilePath(art.Path))
	voice.Caption = voiceCaption
	if d, err := app.speech.Duration(ctx, art.Path); err == nil {
		voice.Duration = int(d.Seconds() + 0.5)
	} else {
		app.log.Debugf("[text] duration unknown: %v", err)
	}

	if _, err := app.bot.Send(voice); err != nil {
		app.log.Errorf("[text] send voice fail chatID=%d: %v", chatID, err)
		app.notify(ctx, err, fmt.Sprintf("Не отправился голос\nЧат: %d", chatID))
		return
	}

	app.log.Infof("[text] done chatID=%d", chatID)
}
