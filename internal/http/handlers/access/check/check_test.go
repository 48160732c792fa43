package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/paywall-access/internal/http/cookies"
	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/models"
	"github.com/magabrotheeeer/paywall-access/internal/services/session"
)

const testHash = "0123456789abcdef0123456789abcdef"

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Recognize(ctx context.Context, sessionID, hash string) (*session.Recognition, error) {
	args := m.Called(ctx, sessionID, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Recognition), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func recognition(kind models.VerdictKind, expires time.Time) *session.Recognition {
	return &session.Recognition{
		Session: &session.Session{ID: "sess-1", Email: "reader@example.com", Hash: testHash},
		Subscriber: &models.Subscriber{
			Email: "reader@example.com", Hash: testHash,
		},
		Verdict: models.Verdict{Kind: kind, Expires: expires},
	}
}

func TestCheck_Granted(t *testing.T) {
	tomorrow := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name        string
		rec         *session.Recognition
		wantVerdict string
	}{
		{name: "unlimited", rec: recognition(models.VerdictUnlimited, time.Time{}), wantVerdict: "unlimited"},
		{name: "subscription", rec: recognition(models.VerdictSubscription, time.Time{}), wantVerdict: "subscription"},
		{name: "expiring tomorrow", rec: recognition(models.VerdictExpiring, tomorrow), wantVerdict: "expiring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			service.On("Recognize", mock.Anything, "sess-1", testHash).Return(tt.rec, nil).Once()

			handler := New(newNoopLogger(), service, time.Hour, 8760*time.Hour)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/access", nil)
			req.AddCookie(&http.Cookie{Name: cookies.SessionCookie, Value: "sess-1"})
			req.AddCookie(&http.Cookie{Name: cookies.RecognitionCookie, Value: testHash})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)

			var resp response.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, response.StatusOK, resp.Status)
			data := resp.Data.(map[string]any)
			assert.Equal(t, tt.wantVerdict, data["verdict"])

			// Куки освежаются на каждом успешном узнавании.
			got := map[string]string{}
			for _, c := range rec.Result().Cookies() {
				got[c.Name] = c.Value
			}
			assert.Equal(t, "sess-1", got[cookies.SessionCookie])
			assert.Equal(t, testHash, got[cookies.RecognitionCookie])
		})
	}
}

func TestCheck_CanceledIsForbidden(t *testing.T) {
	service := new(ServiceMock)
	service.On("Recognize", mock.Anything, "", testHash).
		Return(recognition(models.VerdictCanceled, time.Now().Add(-24*time.Hour)), nil).Once()

	handler := New(newNoopLogger(), service, time.Hour, 8760*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access", nil)
	req.AddCookie(&http.Cookie{Name: cookies.RecognitionCookie, Value: testHash})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheck_NoAccess(t *testing.T) {
	service := new(ServiceMock)
	service.On("Recognize", mock.Anything, "", testHash).
		Return(recognition(models.VerdictNoAccess, time.Time{}), nil).Once()

	handler := New(newNoopLogger(), service, time.Hour, 8760*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access", nil)
	req.AddCookie(&http.Cookie{Name: cookies.RecognitionCookie, Value: testHash})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheck_NotRecognized(t *testing.T) {
	service := new(ServiceMock)
	service.On("Recognize", mock.Anything, "", "").
		Return(nil, fmt.Errorf("session.Recognize: %w", session.ErrNotRecognized)).Once()

	handler := New(newNoopLogger(), service, time.Hour, 8760*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}
