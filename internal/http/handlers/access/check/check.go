// Package check реализует HTTP-обработчик проверки доступа к платному
// контенту. Узнаёт подписчика по куки, пересчитывает вердикт на каждом
// запросе и переустанавливает куки, замыкая ленивую материализацию.
package check

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/paywall-access/internal/http/cookies"
	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
	"github.com/magabrotheeeer/paywall-access/internal/models"
	"github.com/magabrotheeeer/paywall-access/internal/services/session"
)

// Service описывает операцию узнавания подписчика.
type Service interface {
	Recognize(ctx context.Context, sessionID, hash string) (*session.Recognition, error)
}

// Handler обрабатывает HTTP-запросы проверки доступа.
type Handler struct {
	log            *slog.Logger
	service        Service
	sessionTTL     time.Duration
	recognitionTTL time.Duration
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, sessionTTL, recognitionTTL time.Duration) *Handler {
	return &Handler{
		log:            log,
		service:        service,
		sessionTTL:     sessionTTL,
		recognitionTTL: recognitionTTL,
	}
}

// ServeHTTP godoc
// @Summary Проверить доступ к контенту
// @Description Узнаёт подписчика по куки и возвращает свежий вердикт доступа.
// @Tags Access
// @Produce json
// @Success 200 {object} response.Response "Доступ разрешён"
// @Failure 401 {object} response.ErrorResponse "Подписчик не узнан или доступа нет"
// @Failure 403 {object} response.ErrorResponse "Подписка отменена"
// @Router /access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID := cookies.Read(r, cookies.SessionCookie)
	hash := cookies.Read(r, cookies.RecognitionCookie)

	rec, err := h.service.Recognize(r.Context(), sessionID, hash)
	if err != nil {
		log.Info("subscriber not recognized", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("no access"))
		return
	}

	// Обе стороны состояния освежаются на каждом запросе: сессия без куки
	// получает куки, куки без сессии — сессию.
	cookies.SetSession(w, rec.Session.ID, h.sessionTTL)
	cookies.SetRecognition(w, rec.Subscriber.Hash, h.recognitionTTL)

	if !rec.Verdict.Grants(time.Now()) {
		if rec.Verdict.Kind == models.VerdictCanceled {
			log.Info("access denied, subscription canceled",
				slog.String("email", rec.Subscriber.Email))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("subscription canceled"))
			return
		}
		log.Info("access denied", slog.String("email", rec.Subscriber.Email),
			slog.String("verdict", rec.Verdict.Kind.String()))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("no access"))
		return
	}

	data := map[string]any{
		"verdict": rec.Verdict.Kind.String(),
	}
	if !rec.Verdict.Expires.IsZero() {
		data["expires"] = rec.Verdict.Expires
	}
	log.Info("access granted", slog.String("email", rec.Subscriber.Email),
		slog.String("verdict", rec.Verdict.Kind.String()))
	render.JSON(w, r, response.OKWithData(data))
}
