// Package sendlink реализует HTTP-обработчик запроса ссылки для входа.
//
// Обработчик выпускает одноразовый токен и ставит письмо со ссылкой в очередь.
// Ответ одинаков для существующих и несуществующих адресов, чтобы по нему
// нельзя было перечислять подписчиков.
package sendlink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
	"github.com/magabrotheeeer/paywall-access/internal/models"
)

// Request — структура входных данных для запроса ссылки.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Vault выпускает одноразовые логин-токены.
type Vault interface {
	Issue(ctx context.Context, email string) (string, error)
}

// Publisher ставит письмо со ссылкой в очередь отправки.
type Publisher interface {
	PublishLoginLink(msg models.LoginLinkEmail) error
}

// Handler обрабатывает HTTP-запросы на отправку ссылки для входа.
type Handler struct {
	log          *slog.Logger
	vault        Vault
	publisher    Publisher
	loginPageURL string
	siteName     string
	tokenTTL     time.Duration
	validate     *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, vault Vault, publisher Publisher,
	loginPageURL, siteName string, tokenTTL time.Duration) *Handler {
	return &Handler{
		log:          log,
		vault:        vault,
		publisher:    publisher,
		loginPageURL: loginPageURL,
		siteName:     siteName,
		tokenTTL:     tokenTTL,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запросить ссылку для входа
// @Description Отправляет на указанный email одноразовую ссылку для входа. Ответ не раскрывает, существует ли подписчик.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Email подписчика"
// @Success 200 {object} response.Response "Запрос принят"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /login-link [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.sendlink"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	token, err := h.vault.Issue(r.Context(), email)
	if err != nil {
		// Наружу уходит тот же нейтральный ответ, детали в логе.
		log.Error("failed to issue login token", sl.Err(err))
		render.JSON(w, r, response.OK())
		return
	}

	err = h.publisher.PublishLoginLink(models.LoginLinkEmail{
		Email:    email,
		LoginURL: fmt.Sprintf("%s?r=%s", h.loginPageURL, token),
		TTL:      h.tokenTTL,
		SiteName: h.siteName,
	})
	if err != nil {
		log.Error("failed to enqueue login link email", sl.Err(err))
		render.JSON(w, r, response.OK())
		return
	}

	log.Info("login link enqueued", slog.String("email", email))
	render.JSON(w, r, response.OK())
}
