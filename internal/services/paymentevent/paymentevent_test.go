package paymentevent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/paywall-access/internal/models"
	"github.com/magabrotheeeer/paywall-access/internal/storage/repository"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscriber), args.Error(1)
}

func (m *StoreMock) Save(ctx context.Context, sub *models.Subscriber) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestProcess_WebAccept(t *testing.T) {
	tests := []struct {
		status     string
		wantStatus string
		wantSave   bool
	}{
		{status: models.StatusCompleted, wantStatus: models.StatusCompleted, wantSave: true},
		{status: models.StatusReversed, wantStatus: models.StatusReversed, wantSave: true},
		{status: "pending", wantSave: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			store := new(StoreMock)
			sub := &models.Subscriber{Email: "reader@example.com", PaymentGateway: models.GatewayPayPalStandard}
			store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()
			if tt.wantSave {
				store.On("Save", mock.Anything, sub).Return(nil).Once()
			}

			service := New(store, newNoopLogger())
			err := service.Process(context.Background(), models.PaypalIPN{
				TxnType:       models.TxnWebAccept,
				PaymentStatus: tt.status,
				Email:         "reader@example.com",
			})
			require.NoError(t, err)
			if tt.wantSave {
				assert.Equal(t, tt.wantStatus, sub.PaymentStatus)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestProcess_SubscrSignupSetsPlan(t *testing.T) {
	store := new(StoreMock)
	sub := &models.Subscriber{Email: "reader@example.com"}
	store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()
	store.On("Save", mock.Anything, sub).Return(nil).Once()

	service := New(store, newNoopLogger())
	err := service.Process(context.Background(), models.PaypalIPN{
		TxnType: models.TxnSubscrSignup,
		Period:  "1 m",
		Email:   "reader@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "1 M", sub.Plan)
	store.AssertExpectations(t)
}

func TestProcess_SubscrPaymentRecomputesExpires(t *testing.T) {
	store := new(StoreMock)
	sub := &models.Subscriber{Email: "reader@example.com", Plan: "1 M"}
	store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()
	store.On("Save", mock.Anything, sub).Return(nil).Once()

	service := New(store, newNoopLogger())
	err := service.Process(context.Background(), models.PaypalIPN{
		TxnType:       models.TxnSubscrPayment,
		PaymentStatus: models.StatusCompleted,
		PaymentDate:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Email:         "reader@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 15, 23, 59, 59, 0, time.UTC), sub.Expires)
	store.AssertExpectations(t)
}

func TestProcess_SubscrPaymentUncompletedKeepsExpires(t *testing.T) {
	keep := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	store := new(StoreMock)
	sub := &models.Subscriber{Email: "reader@example.com", Plan: "1 M", Expires: keep}
	store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()

	service := New(store, newNoopLogger())
	err := service.Process(context.Background(), models.PaypalIPN{
		TxnType:       models.TxnSubscrPayment,
		PaymentStatus: models.StatusFailed,
		PaymentDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Email:         "reader@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, keep, sub.Expires)
	store.AssertExpectations(t)
}

func TestProcess_SubscrPaymentRotatesSubscriberID(t *testing.T) {
	store := new(StoreMock)
	sub := &models.Subscriber{Email: "reader@example.com", SubscriberID: "TXN-1"}
	store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()
	store.On("Save", mock.Anything, sub).Return(nil).Once()

	service := New(store, newNoopLogger())
	err := service.Process(context.Background(), models.PaypalIPN{
		TxnType:       models.TxnSubscrPayment,
		TxnID:         "TXN-1",
		SubscriberID:  "I-NEWSUB",
		PaymentStatus: models.StatusCompleted,
		Email:         "reader@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "I-NEWSUB", sub.SubscriberID)
	store.AssertExpectations(t)
}

func TestProcess_CancelAndEOT(t *testing.T) {
	tests := []struct {
		txnType    string
		wantStatus string
	}{
		{txnType: models.TxnSubscrCancel, wantStatus: models.StatusCanceled},
		{txnType: models.TxnSubscrEOT, wantStatus: models.StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.txnType, func(t *testing.T) {
			store := new(StoreMock)
			sub := &models.Subscriber{Email: "reader@example.com", PaymentStatus: models.StatusActive}
			store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()
			store.On("Save", mock.Anything, sub).Return(nil).Once()

			service := New(store, newNoopLogger())
			err := service.Process(context.Background(), models.PaypalIPN{
				TxnType: tt.txnType,
				Email:   "reader@example.com",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, sub.PaymentStatus)
			store.AssertExpectations(t)
		})
	}
}

func TestProcess_UnknownSubscriberIsDropped(t *testing.T) {
	store := new(StoreMock)
	store.On("FindByEmail", mock.Anything, "ghost@example.com").
		Return(nil, fmt.Errorf("subscriber.FindByEmail: %w", repository.ErrSubscriberNotFound)).Once()

	service := New(store, newNoopLogger())
	err := service.Process(context.Background(), models.PaypalIPN{
		TxnType: models.TxnSubscrPayment,
		Email:   "ghost@example.com",
	})
	require.NoError(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProcess_UnknownTxnTypeIsDropped(t *testing.T) {
	store := new(StoreMock)
	sub := &models.Subscriber{Email: "reader@example.com"}
	store.On("FindByEmail", mock.Anything, "reader@example.com").Return(sub, nil).Once()

	service := New(store, newNoopLogger())
	err := service.Process(context.Background(), models.PaypalIPN{
		TxnType: "express_checkout",
		Email:   "reader@example.com",
	})
	require.NoError(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestExpiryFromPlan(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		plan    string
		want    time.Time
		wantErr bool
	}{
		{plan: "1 M", want: time.Date(2024, 2, 15, 23, 59, 59, 0, time.UTC)},
		{plan: "2 W", want: time.Date(2024, 1, 29, 23, 59, 59, 0, time.UTC)},
		{plan: "10 D", want: time.Date(2024, 1, 25, 23, 59, 59, 0, time.UTC)},
		{plan: "1 Y", want: time.Date(2025, 1, 15, 23, 59, 59, 0, time.UTC)},
		{plan: "monthly", wantErr: true},
		{plan: "x M", wantErr: true},
		{plan: "1 Q", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			got, err := expiryFromPlan(tt.plan, base)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
