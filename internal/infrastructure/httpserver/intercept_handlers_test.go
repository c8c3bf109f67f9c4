package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
)

func TestInterceptRequest_WritesCapturedResponse(t *testing.T) {
	deps := baseDeps()
	deps.Interceptor = &interceptorMock{interceptFn: func(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error) {
		return &offline.CapturedResponse{
			Status: http.StatusOK,
			Headers: map[string]string{
				"Content-Type":           "application/json",
				offline.HeaderServedFrom: offline.ServedFromCache,
			},
			Body:       []byte(`{"projects":[]}`),
			CapturedAt: time.Now(),
		}, nil
	}}
	server := testServer(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	rec := httptest.NewRecorder()

	server.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"projects":[]}`, rec.Body.String())
	require.Equal(t, offline.ServedFromCache, rec.Header().Get(offline.HeaderServedFrom))
}

func TestInterceptRequest_ForwardsMethodPathAndBody(t *testing.T) {
	var seen *offline.Request
	deps := baseDeps()
	deps.Interceptor = &interceptorMock{interceptFn: func(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error) {
		seen = req
		return offline.SynthesizeAccepted(&offline.QueuedAction{ID: "x", Body: req.Body, Timestamp: time.Now()}), nil
	}}
	server := testServer(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks?project=9", strings.NewReader(`{"title":"Edit ceremony reel"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	server.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "POST", seen.Method)
	require.Equal(t, "/api/tasks", seen.Path)
	require.Equal(t, "project=9", seen.Query)
	require.Equal(t, `{"title":"Edit ceremony reel"}`, string(seen.Body))
}

func TestInterceptRequest_ConstrainedProfileResolved(t *testing.T) {
	var seen offline.ClientProfile
	deps := baseDeps()
	deps.Interceptor = &interceptorMock{interceptFn: func(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error) {
		seen = req.Profile
		return offline.SynthesizeEmptyCollection("tasks", time.Now()), nil
	}}
	server := testServer(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Save-Data", "on")
	rec := httptest.NewRecorder()

	server.Echo().ServeHTTP(rec, req)
	require.True(t, seen.IsConstrainedClient)
	require.Equal(t, time.Second, seen.NetworkTimeout)
}

func TestInterceptRequest_PassthroughFailureReturns502(t *testing.T) {
	deps := baseDeps()
	deps.Interceptor = &interceptorMock{interceptFn: func(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error) {
		return nil, context.DeadlineExceeded
	}}
	server := testServer(deps)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=x"))
	rec := httptest.NewRecorder()

	server.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
