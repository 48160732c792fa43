// Package stripe реализует клиента для получения среза актуального состояния
// подписчика на стороне Stripe: удалён ли клиент, статус подписки и флаги
// последнего платежа.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/magabrotheeeer/paywall-access/internal/models"
)

type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт нового клиента Stripe. Таймаут ограничивает каждое
// обращение к шлюзу; по его истечении вызывающая сторона закрывает доступ.
func NewClient(secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		secretKey:  secretKey,
		apiURL:     "https://api.stripe.com/v1",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type customerResponse struct {
	ID           string `json:"id"`
	Deleted      bool   `json:"deleted"`
	Subscription *struct {
		Status string `json:"status"`
	} `json:"subscription"`
}

type chargeListResponse struct {
	Data []struct {
		Paid     bool `json:"paid"`
		Refunded bool `json:"refunded"`
	} `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	return req, nil
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status: " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchLiveSubscriptionSnapshot запрашивает клиента и его последний платёж.
// Запись в хранилище происходит только после полного разрешения запроса,
// поэтому отмена контекста не оставляет частично записанного состояния.
func (c *Client) FetchLiveSubscriptionSnapshot(ctx context.Context, subscriberID string) (*models.StripeSnapshot, error) {
	const op = "stripe.FetchLiveSubscriptionSnapshot"

	var cu customerResponse
	if err := c.do(ctx, "/customers/"+url.PathEscape(subscriberID), &cu); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cu.Deleted {
		return &models.StripeSnapshot{Deleted: true}, nil
	}

	snapshot := &models.StripeSnapshot{}
	if cu.Subscription != nil {
		snapshot.SubscriptionStatus = cu.Subscription.Status
	}

	var charges chargeListResponse
	query := url.Values{"customer": {subscriberID}, "limit": {"1"}}
	if err := c.do(ctx, "/charges?"+query.Encode(), &charges); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(charges.Data) > 0 {
		snapshot.LatestChargePaid = charges.Data[0].Paid
		snapshot.LatestChargeRefunded = charges.Data[0].Refunded
	}
	return snapshot, nil
}
