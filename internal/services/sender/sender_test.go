package sender

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/paywall-access/internal/lib/smtp"
	"github.com/magabrotheeeer/paywall-access/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
	written []byte
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	return &captureWriter{client: m}, args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type captureWriter struct {
	client *MockSMTPClient
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.client.written = append(w.client.written, p...)
	return len(p), nil
}

func (w *captureWriter) Close() error { return nil }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSendLoginLink(t *testing.T) {
	client := new(MockSMTPClient)
	client.On("Mail", "noreply@example.com").Return(nil)
	client.On("Rcpt", "reader@example.com").Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	transport := new(MockTransport)
	transport.On("Connect").Return(client, nil)
	transport.On("GetSMTPUser").Return("noreply@example.com")

	service := NewSenderService(newNoopLogger(), transport)

	body, err := json.Marshal(models.LoginLinkEmail{
		Email:    "reader@example.com",
		LoginURL: "https://example.com/login?r=0123456789abcdef0123456789abcdef",
		TTL:      time.Hour,
		SiteName: "Example News",
	})
	require.NoError(t, err)

	require.NoError(t, service.SendLoginLink(body))

	msg := string(client.written)
	assert.Contains(t, msg, "To: reader@example.com")
	assert.Contains(t, msg, "https://example.com/login?r=0123456789abcdef0123456789abcdef")
	assert.Contains(t, msg, "Example News")
	client.AssertExpectations(t)
	transport.AssertExpectations(t)
}

func TestSendLoginLink_BadMessage(t *testing.T) {
	service := NewSenderService(newNoopLogger(), new(MockTransport))
	err := service.SendLoginLink([]byte("{not json"))
	require.Error(t, err)
}
