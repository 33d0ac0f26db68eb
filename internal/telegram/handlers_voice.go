package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_bot/internal/textproc"
)

// лимит Telegram на длину сообщения
const maxMessageLen = 4096

func (app *BotApp) handleVoice(ctx context.Context, chatID int64, fileID string) {
	app.log.Infof("[voice] start chatID=%d fileID=%s", chatID, fileID)

	app.send(tgbotapi.NewMessage(chatID, "Аудио получено"))

	local, err := app.download(ctx, fileID)
	if err != nil {
		app.log.Errorf("[voice] download fail chatID=%d: %v", chatID, err)
		app.send(tgbotapi.NewMessage(chatID, "⚠️ Ошибка при загрузке файла."))
		return
	}
	defer func() {
		if err := os.Remove(local); err != nil {
			app.log.Warnf("[voice] remove %s: %v", local, err)
		}
	}()
	app.log.Debugf("[voice] saved to %s", local)

	// голос -> текст
	text, err := app.speech.Transcribe(ctx, local)
	if err != nil {
		app.log.Errorf("[voice] transcribe fail chatID=%d: %v", chatID, err)
		app.notify(ctx, err, fmt.Sprintf("Ошибка распознавания\nЧат: %d\nФайл: %s", chatID, fileID))
		app.send(tgbotapi.NewMessage(chatID, "⚠️ Не удалось распознать аудио."))
		return
	}

	if text == "" {
		app.send(tgbotapi.NewMessage(chatID, "Формат документа не поддерживается"))
		return
	}

	for part := range textproc.Split(text, maxMessageLen).All() {
		app.send(tgbotapi.NewMessage(chatID, part.Text))
	}
	app.log.Infof("[voice] done chatID=%d chars=%d", chatID, len([]rune(text)))
}

// download сохраняет файл Telegram во временный каталог под уникальным именем.
func (app *BotApp) download(ctx context.Context, fileID string) (string, error) {
	link, err := app.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := app.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(app.tempDir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(app.tempDir, uuid.NewString()+"_in"+extOf(link))
	out, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(local)
		return "", fmt.Errorf("save: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(local)
		return "", err
	}
	return local, nil
}

func extOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
