// Package logout реализует HTTP-обработчик выхода: удаляет серверную
// сессию и сбрасывает оба куки. Повторный выход не является ошибкой.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/paywall-access/internal/http/cookies"
	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
)

// Service описывает операцию завершения сессии.
type Service interface {
	Logout(ctx context.Context, sessionID string) error
}

// Handler обрабатывает HTTP-запросы выхода.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Удаляет серверную сессию и сбрасывает куки сессии и узнавания.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response "Выход выполнен"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID := cookies.Read(r, cookies.SessionCookie)
	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		// Куки всё равно сбрасываются, ошибка хранилища только логируется.
		log.Error("failed to drop session", sl.Err(err))
	}

	cookies.Clear(w, cookies.SessionCookie)
	cookies.Clear(w, cookies.RecognitionCookie)

	log.Info("logged out")
	render.JSON(w, r, response.OK())
}
