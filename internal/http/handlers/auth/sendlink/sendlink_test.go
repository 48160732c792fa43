package sendlink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/paywall-access/internal/http/response"
	"github.com/magabrotheeeer/paywall-access/internal/models"
)

type VaultMock struct{ mock.Mock }

func (m *VaultMock) Issue(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishLoginLink(msg models.LoginLinkEmail) error {
	args := m.Called(msg)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSendLink(t *testing.T) {
	const token = "0123456789abcdef0123456789abcdef"

	tests := []struct {
		name       string
		body       string
		setup      func(vault *VaultMock, publisher *PublisherMock)
		wantStatus int
		wantOK     bool
	}{
		{
			name: "success",
			body: `{"email": "Reader@Example.com"}`,
			setup: func(vault *VaultMock, publisher *PublisherMock) {
				vault.On("Issue", mock.Anything, "reader@example.com").Return(token, nil).Once()
				publisher.On("PublishLoginLink", mock.MatchedBy(func(msg models.LoginLinkEmail) bool {
					return msg.Email == "reader@example.com" &&
						strings.HasSuffix(msg.LoginURL, "?r="+token) &&
						msg.SiteName == "Example News"
				})).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "invalid json",
			body:       `{not json`,
			setup:      func(_ *VaultMock, _ *PublisherMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing email",
			body:       `{}`,
			setup:      func(_ *VaultMock, _ *PublisherMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed email",
			body:       `{"email": "not-an-email"}`,
			setup:      func(_ *VaultMock, _ *PublisherMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "issue failure still answers OK",
			body: `{"email": "reader@example.com"}`,
			setup: func(vault *VaultMock, _ *PublisherMock) {
				vault.On("Issue", mock.Anything, "reader@example.com").
					Return("", errors.New("redis down")).Once()
			},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name: "publish failure still answers OK",
			body: `{"email": "reader@example.com"}`,
			setup: func(vault *VaultMock, publisher *PublisherMock) {
				vault.On("Issue", mock.Anything, "reader@example.com").Return(token, nil).Once()
				publisher.On("PublishLoginLink", mock.Anything).
					Return(errors.New("broker down")).Once()
			},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := new(VaultMock)
			publisher := new(PublisherMock)
			tt.setup(vault, publisher)

			handler := New(newNoopLogger(), vault, publisher,
				"https://example.com/login", "Example News", time.Hour)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/login-link", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantOK {
				var resp response.Response
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, response.StatusOK, resp.Status)
			}
			vault.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}
