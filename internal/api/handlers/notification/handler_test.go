package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazakov/reminderd/internal/api/dto"
	"github.com/pkazakov/reminderd/internal/model"
	notifsvc "github.com/pkazakov/reminderd/internal/service/notification"
)

type fakeService struct {
	created  model.Notification
	list     []model.Notification
	err      error
	gotDate  string
	gotText  string
	gotSubj  string
	listSubj string
}

func (f *fakeService) CreateNotification(_ context.Context, subject, dateText, text string) (model.Notification, error) {
	f.gotSubj, f.gotDate, f.gotText = subject, dateText, text

	if f.err != nil {
		return model.Notification{}, f.err
	}

	return f.created, nil
}

func (f *fakeService) ListUpcoming(_ context.Context, subject string) ([]model.Notification, error) {
	f.listSubj = subject

	if f.err != nil {
		return nil, f.err
	}

	return f.list, nil
}

func setupHandler(svc *fakeService) *Handler {
	return NewHandler(svc, validator.New())
}

func TestHandler_Create_Success(t *testing.T) {
	svc := &fakeService{
		created: model.Notification{
			ID:      uuid.New(),
			Subject: "chat-1",
			Text:    "buy milk",
			DueAt:   time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
			Status:  model.StatusPending,
		},
	}
	handler := setupHandler(svc)

	body, _ := json.Marshal(dto.CreateRequest{Subject: "chat-1", Date: "02.01.2030", Text: "buy milk"})
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/", bytes.NewReader(body))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.Equal(t, "chat-1", svc.gotSubj)
	assert.Equal(t, "02.01.2030", svc.gotDate)
	assert.Equal(t, "buy milk", svc.gotText)
}

func TestHandler_Create_InvalidBody(t *testing.T) {
	handler := setupHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/reminders/", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_MissingFields(t *testing.T) {
	handler := setupHandler(&fakeService{})

	body, _ := json.Marshal(dto.CreateRequest{Subject: "chat-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/", bytes.NewReader(body))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_ValidationErrors(t *testing.T) {
	for _, svcErr := range []error{notifsvc.ErrInvalidDateFormat, notifsvc.ErrDateNotInFuture} {
		handler := setupHandler(&fakeService{err: svcErr})

		body, _ := json.Marshal(dto.CreateRequest{Subject: "chat-1", Date: "31.02.2030", Text: "x"})
		req := httptest.NewRequest(http.MethodPost, "/api/reminders/", bytes.NewReader(body))
		w := httptest.NewRecorder()

		c, _ := gin.CreateTestContext(w)
		c.Request = req

		handler.Create(c)

		require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), svcErr.Error())
	}
}

func TestHandler_ListUpcoming_Success(t *testing.T) {
	svc := &fakeService{
		list: []model.Notification{{ID: uuid.New(), Subject: "chat-1", Text: "first"}},
	}
	handler := setupHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/reminders/chat-1", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "subject", Value: "chat-1"}}

	handler.ListUpcoming(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "chat-1", svc.listSubj)
	assert.Contains(t, w.Body.String(), "first")
}

func TestHandler_ListUpcoming_Empty(t *testing.T) {
	handler := setupHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/reminders/chat-1", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "subject", Value: "chat-1"}}

	handler.ListUpcoming(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "[]")
}
