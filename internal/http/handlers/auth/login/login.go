// Package login реализует HTTP-обработчик входа по одноразовой ссылке.
//
// Токен приходит в query-параметре r. Успешный вход устанавливает куки
// сессии и куки узнавания; любая причина отказа выглядит для клиента
// одинаково.
package login

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
	"github.com/magabrotheeeer/paywall-access/internal/services/session"
)

// Service описывает операцию входа по одноразовому токену.
type Service interface {
	AttemptLogin(ctx context.Context, token string) (*session.Recognition, error)
}

// Handler обрабатывает HTTP-запросы входа по ссылке.
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
// @Summary Вход по одноразовой ссылке
// @Description Потребляет одноразовый токен из параметра r и устанавливает куки сессии и узнавания.
// @Tags Auth
// @Produce json
// @Param r query string true "Одноразовый логин-токен"
// @Success 200 {object} response.Response "Вход выполнен"
// @Failure 401 {object} response.ErrorResponse "Вход не выполнен"
// @Router /login [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("r")
	rec, err := h.service.AttemptLogin(r.Context(), token)
	if err != nil {
		log.Info("login attempt rejected", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("login failed"))
		return
	}

	cookies.SetSession(w, rec.Session.ID, h.sessionTTL)
	cookies.SetRecognition(w, rec.Subscriber.Hash, h.recognitionTTL)

	log.Info("login succeeded", slog.String("email", rec.Subscriber.Email))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"email": rec.Subscriber.Email,
	}))
}
