package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const greeting = "Привет! Я голосовой бот.\n\n" +
	"Пришли текст, и я отвечу голосом.\n" +
	"Пришли голосовое, аудио или файл, и я пришлю текст.\n\n" +
	"/help: эта справка\n/test: проверка связи"

func (app *BotApp) dispatchUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			app.log.Errorf("[bot_loop] panic updateID=%d: %v", update.UpdateID, r)
			app.notify(ctx, fmt.Errorf("panic: %v", r), fmt.Sprintf("updateID=%d", update.UpdateID))
		}
	}()

	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	msg := update.Message

	var fromID int64
	if msg.From != nil {
		fromID = msg.From.ID
	}
	app.log.Debugf("[bot_touch] fromTG=%d chatID=%d updateID=%d", fromID, msg.Chat.ID, update.UpdateID)

	app.handleMessage(ctx, msg)
}

func (app *BotApp) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	// =====================================================
	// КОМАНДЫ
	// =====================================================
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			app.send(tgbotapi.NewMessage(chatID, greeting))
		case "test":
			app.send(tgbotapi.NewMessage(chatID, "Test"))
		default:
			app.send(tgbotapi.NewMessage(chatID, "Неизвестная команда. /help"))
		}
		return
	}

	// =====================================================
	// ГОЛОС / АУДИО / ФАЙЛ -> ТЕКСТ
	// =====================================================
	switch {
	case msg.Voice != nil:
		app.handleVoice(ctx, chatID, msg.Voice.FileID)
		return
	case msg.Audio != nil:
		app.handleVoice(ctx, chatID, msg.Audio.FileID)
		return
	case msg.Document != nil:
		app.handleVoice(ctx, chatID, msg.Document.FileID)
		return
	}

	// =====================================================
	// ТЕКСТ -> ГОЛОС
	// =====================================================
	if msg.Text != "" {
		app.handleText(ctx, chatID, msg.Text)
	}
}

func (app *BotApp) send(c tgbotapi.Chattable) {
	if _, err := app.bot.Send(c); err != nil {
		app.log.Warnf("[bot] send fail: %v", err)
	}
}

func (app *BotApp) notify(ctx context.Context, err error, details string) {
	if app.errorNotify == nil {
		return
	}
	if nerr := app.errorNotify.Notify(ctx, err, details); nerr != nil {
		app.log.Warnf("[bot] notify fail: %v", nerr)
	}
}
