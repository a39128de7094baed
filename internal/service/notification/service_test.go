package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazakov/reminderd/internal/model"
)

type fakeRepo struct {
	created []model.Notification
	list    []model.Notification
	err     error
}

func (f *fakeRepo) CreateNotification(_ context.Context, subject, text string, dueAt time.Time) (model.Notification, error) {
	if f.err != nil {
		return model.Notification{}, f.err
	}

	n := model.Notification{
		ID:        uuid.New(),
		Subject:   subject,
		Text:      text,
		DueAt:     dueAt,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}
	f.created = append(f.created, n)

	return n, nil
}

func (f *fakeRepo) GetBySubject(_ context.Context, subject string) ([]model.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.list, nil
}

func setupService(repo *fakeRepo, now time.Time) *Service {
	svc := NewService(repo, time.UTC)
	svc.now = func() time.Time { return now }

	return svc
}

func TestService_CreateNotification(t *testing.T) {
	repo := &fakeRepo{}
	svc := setupService(repo, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))

	n, err := svc.CreateNotification(context.Background(), "chat-1", "11.03.2025", "dentist at noon")
	require.NoError(t, err)

	assert.Equal(t, "chat-1", n.Subject)
	assert.Equal(t, "dentist at noon", n.Text)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), n.DueAt)
	require.Len(t, repo.created, 1)
}

func TestService_CreateNotification_InvalidFormat(t *testing.T) {
	repo := &fakeRepo{}
	svc := setupService(repo, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))

	cases := []string{
		"31.02.2030", // impossible calendar date
		"2030-02-01", // wrong layout
		"1.2.2030",   // missing zero padding
		"tomorrow",
		"",
	}

	for _, dateText := range cases {
		_, err := svc.CreateNotification(context.Background(), "chat-1", dateText, "text")
		assert.ErrorIs(t, err, ErrInvalidDateFormat, "date %q", dateText)
	}

	assert.Empty(t, repo.created)
}

func TestService_CreateNotification_NotInFuture(t *testing.T) {
	repo := &fakeRepo{}
	svc := setupService(repo, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))

	for _, dateText := range []string{"09.03.2025", "10.03.2025", "10.03.2024"} {
		_, err := svc.CreateNotification(context.Background(), "chat-1", dateText, "text")
		assert.ErrorIs(t, err, ErrDateNotInFuture, "date %q", dateText)
	}

	assert.Empty(t, repo.created)
}

func TestService_CreateNotification_RepoError(t *testing.T) {
	repoErr := errors.New("disk full")
	svc := setupService(&fakeRepo{err: repoErr}, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))

	_, err := svc.CreateNotification(context.Background(), "chat-1", "11.03.2025", "text")
	assert.ErrorIs(t, err, repoErr)
}

func TestService_ListUpcoming(t *testing.T) {
	list := []model.Notification{
		{ID: uuid.New(), Subject: "chat-1", Text: "first"},
		{ID: uuid.New(), Subject: "chat-1", Text: "second"},
	}
	svc := setupService(&fakeRepo{list: list}, time.Now())

	got, err := svc.ListUpcoming(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, list, got)
}
