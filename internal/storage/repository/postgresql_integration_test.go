package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/paywall-access/internal/models"
)

const (
	testHashA = "0123456789abcdef0123456789abcdef"
	testHashB = "fedcba9876543210fedcba9876543210"
)

func TestStorage_FindOrCreateUserByEmail(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	uid, err := storage.FindOrCreateUserByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	again, err := storage.FindOrCreateUserByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, again, "repeated call must return the same uid")

	email, err := storage.GetUserEmail(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", email)
}

func TestStorage_UpsertSubscriber(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "reader@example.com")

	sub := GetTestSubscriber(userUID, "reader@example.com", testHashA, models.ModeLive)
	require.NoError(t, storage.UpsertSubscriber(ctx, sub))

	// Повторная запись по тому же (email, mode) обновляет поля, а не плодит строки.
	sub.PaymentStatus = models.StatusCanceled
	sub.Expires = time.Time{}
	require.NoError(t, storage.UpsertSubscriber(ctx, sub))

	got, err := storage.FindSubscriberByEmail(ctx, "reader@example.com", models.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.PaymentStatus)
	assert.True(t, got.Expires.IsZero(), "NULL expires must scan as zero time")

	var count int
	require.NoError(t, storage.DB.QueryRow(
		`SELECT COUNT(*) FROM subscribers WHERE email = $1`, "reader@example.com").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStorage_ModesAreIsolated(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "reader@example.com")

	live := GetTestSubscriber(userUID, "reader@example.com", testHashA, models.ModeLive)
	test := GetTestSubscriber(userUID, "reader@example.com", testHashB, models.ModeTest)
	test.PaymentStatus = models.StatusCanceled
	factory.CreateSubscriber(t, live)
	factory.CreateSubscriber(t, test)

	got, err := storage.FindSubscriberByEmail(ctx, "reader@example.com", models.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.PaymentStatus)

	got, err = storage.FindSubscriberByEmail(ctx, "reader@example.com", models.ModeTest)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.PaymentStatus)

	// Hash из другого режима не виден.
	_, err = storage.FindSubscriberByHash(ctx, testHashB, models.ModeLive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubscriberNotFound))
}

func TestStorage_FindSubscriberByHash(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "reader@example.com")
	factory.CreateSubscriber(t, GetTestSubscriber(userUID, "reader@example.com", testHashA, models.ModeLive))

	got, err := storage.FindSubscriberByHash(ctx, testHashA, models.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", got.Email)

	_, err = storage.FindSubscriberByHash(ctx, testHashB, models.ModeLive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubscriberNotFound))
}

func TestStorage_FindSubscriberByHash_DuplicateIsIntegrityError(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "first@example.com")
	otherUID := factory.CreateUser(t, "second@example.com")
	factory.CreateSubscriber(t, GetTestSubscriber(userUID, "first@example.com", testHashA, models.ModeLive))
	factory.CreateSubscriber(t, GetTestSubscriber(otherUID, "second@example.com", testHashA, models.ModeLive))

	_, err := storage.FindSubscriberByHash(ctx, testHashA, models.ModeLive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateHash))
}

func TestStorage_ContextCancellation(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.FindSubscriberByEmail(ctx, "reader@example.com", models.ModeLive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
