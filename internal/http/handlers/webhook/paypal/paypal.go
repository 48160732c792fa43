// Package paypal реализует HTTP-обработчик входящих IPN-уведомлений.
//
// Шлюз не разбирает тело ответа и смотрит только на HTTP-статус, поэтому
// обработчик отвечает 200 на любой разобранный запрос, включая внутренние
// ошибки обработки: не-2xx спровоцировал бы шторм повторов со стороны шлюза.
// 400 зарезервирован за синтаксически некорректными запросами.
package paypal

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
	"github.com/magabrotheeeer/paywall-access/internal/models"
)

// Processor применяет нормализованное уведомление к хранилищу подписчиков.
type Processor interface {
	Process(ctx context.Context, ipn models.PaypalIPN) error
}

// Handler обрабатывает HTTP-запросы платёжного шлюза.
type Handler struct {
	log       *slog.Logger
	processor Processor
	secret    string
}

// New создает новый экземпляр Handler. Пустой secret отключает проверку
// подписи: протокол шлюза её не предусматривает, поэтому она включается
// только там, где уведомления проксируются доверенным посредником.
func New(log *slog.Logger, processor Processor, secret string) *Handler {
	return &Handler{
		log:       log,
		processor: processor,
		secret:    secret,
	}
}

// ServeHTTP godoc
// @Summary Принять уведомление платёжного шлюза
// @Description Принимает form-encoded IPN-уведомление. Отвечает 200 независимо от результата обработки.
// @Tags Webhook
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} response.Response "Уведомление принято"
// @Failure 400 {object} response.ErrorResponse "Синтаксически некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Router /webhooks/paypal [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.paypal"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if h.secret != "" && !h.validSignature(body, r.Header.Get("X-Api-Signature")) {
		log.Error("webhook signature mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		log.Error("failed to parse form body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	ipn := models.PaypalIPN{
		TxnType:       form.Get("txn_type"),
		TxnID:         form.Get("txn_id"),
		PaymentStatus: strings.ToLower(form.Get("payment_status")),
		SubscriberID:  form.Get("subscr_id"),
		Period:        form.Get("period3"),
		PaymentDate:   parsePaymentDate(form.Get("payment_date")),
		Email:         strings.ToLower(strings.TrimSpace(form.Get("custom"))),
	}
	if ipn.SubscriberID == "" {
		ipn.SubscriberID = form.Get("recurring_payment_id")
	}

	if err := h.processor.Process(r.Context(), ipn); err != nil {
		// Для шлюза исход одинаков, повторная доставка ничего не исправит.
		log.Error("failed to process payment event", sl.Err(err))
		render.JSON(w, r, response.OK())
		return
	}

	log.Info("payment event accepted",
		slog.String("txn_type", ipn.TxnType), slog.String("email", ipn.Email))
	render.JSON(w, r, response.OK())
}

func (h *Handler) validSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// parsePaymentDate разбирает дату платежа в формате шлюза, затем в ISO;
// неразборчивая дата заменяется текущим моментом.
func parsePaymentDate(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	if ts, err := time.Parse("15:04:05 Jan 2, 2006 MST", raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts
	}
	return time.Now()
}
