package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/tunnelops-console/internal/console/service"
	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type stubVideo struct {
	cams   []domain.Camera
	addErr error
}

func (s stubVideo) List(context.Context) []domain.Camera { return s.cams }

func (s stubVideo) Add(_ context.Context, name, streamURL, status string) (domain.Camera, error) {
	if s.addErr != nil {
		return domain.Camera{}, s.addErr
	}
	return domain.Camera{ID: "cam-99", Name: name, StreamURL: streamURL, Status: status}, nil
}

func TestVideoAddRequiresStreamURL(t *testing.T) {
	h := NewVideoHandler(stubVideo{addErr: service.ErrStreamURLRequired})
	req := httptest.NewRequest(http.MethodPost, "/api/video/add", strings.NewReader(`{"name":"洞口北侧"}`))
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"streamUrl required"}`, rec.Body.String())
}

func TestVideoAddReturnsCreatedCamera(t *testing.T) {
	h := NewVideoHandler(stubVideo{})
	req := httptest.NewRequest(http.MethodPost, "/api/video/add",
		strings.NewReader(`{"name":"始发井","streamUrl":"rtsp://cam-07/live","status":"在线"}`))
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
	assert.Contains(t, rec.Body.String(), "rtsp://cam-07/live")
}

func TestVideoAddRejectsBadBody(t *testing.T) {
	h := NewVideoHandler(stubVideo{})
	req := httptest.NewRequest(http.MethodPost, "/api/video/add", strings.NewReader("not-json"))
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
