package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/middleware"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/response"
)

type fakeRequestSrv struct {
	created        *models.DocumentRequest
	createErr      error
	transitioned   *models.DocumentRequest
	transitionErr  error
	trackView      *dto.TrackingView
	trackErr       error
	lastTransition dto.TransitionPayload
}

func (f *fakeRequestSrv) Create(ctx context.Context, payload dto.CreateRequestPayload) (*models.DocumentRequest, error) {
	return f.created, f.createErr
}

func (f *fakeRequestSrv) Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	return f.created, f.createErr
}

func (f *fakeRequestSrv) List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.DocumentRequest, *models.Pagination, error) {
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeRequestSrv) Transition(ctx context.Context, requestID string, payload dto.TransitionPayload, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	f.lastTransition = payload
	return f.transitioned, f.transitionErr
}

func (f *fakeRequestSrv) Reschedule(ctx context.Context, requestID string, payload dto.ReschedulePayload, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	return f.transitioned, f.transitionErr
}

func (f *fakeRequestSrv) History(ctx context.Context, requestID string, actor *models.JWTClaims) ([]models.RequestTracking, error) {
	return []models.RequestTracking{{RequestID: requestID, Status: models.StatusPending}}, nil
}

func (f *fakeRequestSrv) TrackByReference(ctx context.Context, referenceNumber string) (*dto.TrackingView, error) {
	return f.trackView, f.trackErr
}

func (f *fakeRequestSrv) UpdateAdminNotes(ctx context.Context, requestID string, payload dto.AdminNotesPayload, actor *models.JWTClaims) error {
	return nil
}

func TestRequestHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{
		created: &models.DocumentRequest{ID: "req-1", Status: models.StatusPending},
	})

	body := `{"requester_id":"s1","requester_type":"STUDENT","lines":[{"document_type_id":"dt-a","quantity":1}]}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
}

func TestRequestHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader("{not json"))

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestHandlerReadsRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{
		created: &models.DocumentRequest{ID: "req-1", Status: models.StatusPending},
	})

	cases := []struct {
		name   string
		invoke func(c *gin.Context)
	}{
		{"get", handler.Get},
		{"list", handler.List},
		{"history", handler.History},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/requests/req-1", nil)
			c.Params = gin.Params{{Key: "id", Value: "req-1"}}

			tc.invoke(c)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequestHandlerGetPassesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{
		created: &models.DocumentRequest{ID: "req-1", Status: models.StatusPending},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/requests/req-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestHandlerTransitionRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/transition", strings.NewReader(`{"target_status":"SET"}`))

	handler.Transition(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestHandlerTransitionUppercasesTarget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRequestSrv{transitioned: &models.DocumentRequest{ID: "req-1", Status: models.StatusSet}}
	handler := NewRequestHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/transition", strings.NewReader(`{"target_status":"set"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Transition(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusSet, srv.lastTransition.TargetStatus)
}

func TestRequestHandlerTransitionSurfacesConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{
		transitionErr: appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently"),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/transition", strings.NewReader(`{"target_status":"SET"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Transition(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequestHandlerTrack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{
		trackView: &dto.TrackingView{ReferenceNumber: "REF7K2M9QXZ", Status: models.StatusReady},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/track/ref7k2m9qxz", nil)
	c.Params = gin.Params{{Key: "reference", Value: "ref7k2m9qxz"}}

	handler.Track(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "REF7K2M9QXZ", data["reference_number"])
}

func TestRequestHandlerTrackNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{
		trackErr: appErrors.Clone(appErrors.ErrNotFound, "no request matches that reference number"),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/track/UNKNOWN", nil)
	c.Params = gin.Params{{Key: "reference", Value: "UNKNOWN"}}

	handler.Track(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
