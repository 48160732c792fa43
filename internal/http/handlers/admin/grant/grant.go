// Package grant реализует HTTP-обработчик административного создания и
// обновления записей подписчиков, в том числе ручной выдачи доступа без
// платёжного шлюза.
package grant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
	"github.com/magabrotheeeer/paywall-access/internal/models"
)

// Request — структура входных данных для создания или обновления подписчика.
// Пустые поля не затирают существующие значения записи.
type Request struct {
	Email          string `json:"email" validate:"required,email"`
	PaymentGateway string `json:"payment_gateway" validate:"required,oneof=stripe paypal_standard manual"`
	PaymentStatus  string `json:"payment_status" validate:"omitempty,oneof=active canceled deactivated"`
	SubscriberID   string `json:"subscriber_id"`
	Price          string `json:"price"`
	Description    string `json:"description"`
	Plan           string `json:"plan"`
	Interval       string `json:"interval" validate:"omitempty,oneof=day week month year"`
	IntervalCount  int    `json:"interval_count" validate:"omitempty,min=1"`
	Expires        string `json:"expires" validate:"omitempty,datetime=2006-01-02"`
}

// Service описывает операцию слияния записи подписчика.
type Service interface {
	Upsert(ctx context.Context, email string, args models.UpsertArgs) (*models.Subscriber, error)
}

// Handler обрабатывает HTTP-запросы административной выдачи доступа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать или обновить подписчика
// @Description Сливает переданные поля с существующей записью подписчика текущего режима. Требует JWT администратора.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body Request true "Поля подписчика"
// @Success 200 {object} response.Response "Запись сохранена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/subscribers [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.grant"

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

	args := models.UpsertArgs{
		SubscriberID:   req.SubscriberID,
		Price:          req.Price,
		Description:    req.Description,
		Plan:           req.Plan,
		Interval:       req.Interval,
		IntervalCount:  req.IntervalCount,
		PaymentGateway: req.PaymentGateway,
		PaymentStatus:  req.PaymentStatus,
	}
	if req.Expires != "" {
		expires, err := time.Parse("2006-01-02", req.Expires)
		if err != nil {
			log.Error("failed to parse expires", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("field Expires can contain only date in format 2006-01-02"))
			return
		}
		args.Expires = expires
	}

	sub, err := h.service.Upsert(r.Context(), req.Email, args)
	if err != nil {
		log.Error("failed to upsert subscriber", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscriber saved", slog.String("email", sub.Email))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"email": sub.Email,
		"hash":  sub.Hash,
		"mode":  sub.Mode,
	}))
}
