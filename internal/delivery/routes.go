package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter собирает HTTP API. rateLimit задаёт запросов в минуту на IP для /v1, 0 отключает лимит.
func NewRouter(h *SpeechHandler, rateLimit int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/v1", func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)
		if rateLimit > 0 {
			pr.Use(httprate.LimitByIP(rateLimit, time.Minute))
		}

		// --- речь ---
		pr.Post("/tts", h.TextToSpeech)
		pr.Post("/stt", h.SpeechToText)
		pr.Post("/convert", h.Convert)
	})

	return r
}
