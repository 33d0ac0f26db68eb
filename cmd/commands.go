package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	json "github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/delivery"
	"github.com/Vovarama1992/voice_bot/internal/error_notificator"
	"github.com/Vovarama1992/voice_bot/internal/speech"
	"github.com/Vovarama1992/voice_bot/internal/telegram"
	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot together with the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.TelegramToken == "" {
			return errors.New("TELEGRAM_TOKEN not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// =====================================================================
		// TELEGRAM BOT
		// =====================================================================

		api, err := tgbotapi.NewBotAPI(a.cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("telegram init: %w", err)
		}

		errInfra := error_notificator.NewInfra("@"+api.Self.UserName, a.cfg.AdminChatID, a.log)
		errInfra.SetBot(api)
		errService := error_notificator.NewService(errInfra)

		botApp := telegram.NewBotApp(api, a.speech, errService, a.cfg.TempDir, a.log)

		done := make(chan struct{})
		go func() {
			defer close(done)
			botApp.Start(ctx, api)
		}()

		err = serveHTTP(ctx, a)
		stop()
		<-done
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run only the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveHTTP(ctx, a)
	},
}

var (
	sayOut    string
	sayVoice  string
	sayRate   int
	sayFormat string
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Synthesize text into an audio file",
	Long: `Synthesize text into a single audio file.

Numbers are spelled out, long texts are split and joined back.

Examples:
  voice_bot say "Привет, мир" -o hello.ogg
  voice_bot say "Тэст 1 2 три" -o test.mp3 --format mp3 --voice baya --rate 48000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := speech.Options{Voice: sayVoice, SampleRate: sayRate, OutPath: sayOut}
		if sayFormat != "" {
			if opts.Format, err = transcoder.ParseFormat(sayFormat); err != nil {
				return err
			}
		}

		art, err := a.speech.Synthesize(cmd.Context(), strings.Join(args, " "), opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), art.Path)
		return nil
	},
}

var hearJSON bool

var hearCmd = &cobra.Command{
	Use:   "hear <file>",
	Short: "Transcribe an audio file",
	Long: `Transcribe an audio file in any format ffmpeg can read.

Examples:
  voice_bot hear voice.oga
  voice_bot hear meeting.mp3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.speech.TranscribeResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if hearJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}

func init() {
	sayCmd.Flags().StringVarP(&sayOut, "out", "o", "", "output file (default: temp dir)")
	sayCmd.Flags().StringVar(&sayVoice, "voice", "", "voice (default: TTS_VOICE)")
	sayCmd.Flags().IntVar(&sayRate, "rate", 0, "sample rate (default: TTS_SAMPLE_RATE)")
	sayCmd.Flags().StringVar(&sayFormat, "format", "", "ogg, opus, mp3 or wav (default: TTS_OUTPUT_FORMAT)")

	hearCmd.Flags().BoolVar(&hearJSON, "json", false, "print text with word timings as JSON")
}

// =========================================================================
// HTTP SERVER
// =========================================================================

func serveHTTP(ctx context.Context, a *app) error {
	zl := logger.NewZapLogger(a.log.Sugar())

	h := delivery.NewSpeechHandler(a.speech, a.cfg.TempDir, zl)
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           delivery.NewRouter(h, a.cfg.HTTPRateLimit),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "listening at " + srv.Addr,
			Service: "voice_bot",
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
		return err
	}
	a.log.Info("http stopped")
	return nil
}
