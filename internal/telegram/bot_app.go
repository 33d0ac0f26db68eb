package telegram

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/error_notificator"
	"github.com/Vovarama1992/voice_bot/internal/speech"
)

// Bot: то, что BotApp использует из tgbotapi.BotAPI.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type SpeechService interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Synthesize(ctx context.Context, text string, opts speech.Options) (speech.Artifact, error)
	Duration(ctx context.Context, path string) (time.Duration, error)
}

type BotApp struct {
	bot         Bot
	speech      SpeechService
	errorNotify error_notificator.Notificator
	tempDir     string
	httpCli     *http.Client
	log         *zap.SugaredLogger

	wg sync.WaitGroup
}

func NewBotApp(
	bot Bot,
	speechSvc SpeechService,
	notify error_notificator.Notificator,
	tempDir string,
	log *zap.Logger,
) *BotApp {
	if log == nil {
		log = zap.NewNop()
	}
	return &BotApp{
		bot:         bot,
		speech:      speechSvc,
		errorNotify: notify,
		tempDir:     tempDir,
		httpCli:     &http.Client{Timeout: 2 * time.Minute},
		log:         log.Named("telegram").Sugar(),
	}
}

// Start слушает long polling до отмены ctx.
func (app *BotApp) Start(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := api.GetUpdatesChan(u)
	app.log.Infof("[bot_app] ready: @%s", api.Self.UserName)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	app.Run(ctx, updates)
}

// Run обрабатывает апдейты, каждый в своей горутине, и ждёт незавершённые перед выходом.
func (app *BotApp) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer app.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			app.log.Infof("[bot_loop] stop: %v", ctx.Err())
			return
		case update, ok := <-updates:
			if !ok {
				app.log.Infof("[bot_loop] updates channel closed")
				return
			}
			app.wg.Add(1)
			go func() {
				defer app.wg.Done()
				app.dispatchUpdate(ctx, update)
			}()
		}
	}
}
