package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkazakov/reminderd/internal/model"
)

// DateLayout is the fixed input format for reminder dates (DD.MM.YYYY).
const DateLayout = "02.01.2006"

var (
	// ErrInvalidDateFormat is returned when the date does not parse under
	// the DD.MM.YYYY layout, including impossible calendar dates.
	ErrInvalidDateFormat = errors.New("invalid date format, expected DD.MM.YYYY")

	// ErrDateNotInFuture is returned when the parsed date is today or
	// earlier.
	ErrDateNotInFuture = errors.New("date must be in the future")
)

type notificationRepository interface {
	CreateNotification(ctx context.Context, subject, text string, dueAt time.Time) (model.Notification, error)
	GetBySubject(ctx context.Context, subject string) ([]model.Notification, error)
}

// Service validates reminder creation requests before they reach the store.
type Service struct {
	repo notificationRepository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a new notification service. Dates are interpreted in
// the given location.
func NewService(repo notificationRepository, loc *time.Location) *Service {
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// CreateNotification parses and validates the reminder date, then delegates
// to the repository. The date must be a well-formed DD.MM.YYYY calendar date
// strictly after today.
func (s *Service) CreateNotification(ctx context.Context, subject, dateText, text string) (model.Notification, error) {
	dueAt, err := time.ParseInLocation(DateLayout, dateText, s.loc)
	if err != nil {
		return model.Notification{}, ErrInvalidDateFormat
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	if !dueAt.After(today) {
		return model.Notification{}, ErrDateNotInFuture
	}

	n, err := s.repo.CreateNotification(ctx, subject, text, dueAt)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	return n, nil
}

// ListUpcoming returns the subject's pending reminders, earliest due first.
//
// A pending reminder whose due instant has already passed still shows up
// here: pending means "not yet confirmed delivered", not strictly future.
func (s *Service) ListUpcoming(ctx context.Context, subject string) ([]model.Notification, error) {
	notifications, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list upcoming notifications: %w", err)
	}

	return notifications, nil
}
