package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// ErrStreamURLRequired — попытка добавить камеру без адреса потока.
var ErrStreamURLRequired = errors.New("video: streamUrl required")

// VideoService держит реестр камер целиком в памяти: базовый набор
// фиксирован, добавленные руками камеры живут до рестарта.
type VideoService struct {
	mu    sync.Mutex
	added []domain.Camera
	demo  bool
}

func NewVideoService(demoStreams bool) *VideoService {
	return &VideoService{demo: demoStreams}
}

var demoStreamURLs = []string{
	"https://test-streams.mux.dev/x36xhzz/x36xhzz.m3u8",
	"https://test-streams.mux.dev/pts/stream.m3u8",
	"https://bitdash-a.akamaihd.net/content/sintel/hls/playlist.m3u8",
}

func (s *VideoService) List(ctx context.Context) []domain.Camera {
	cams := []domain.Camera{
		{ID: "cam-01", Name: "盾构机前方", Status: "在线"},
		{ID: "cam-02", Name: "管片拼装区", Status: "在线"},
		{ID: "cam-03", Name: "注浆站", Status: "在线"},
	}
	if s.demo {
		for i := range cams {
			cams[i].StreamURL = demoStreamURLs[i%len(demoStreamURLs)]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append(cams, s.added...)
}

func (s *VideoService) Add(ctx context.Context, name, streamURL, status string) (domain.Camera, error) {
	if streamURL == "" {
		return domain.Camera{}, ErrStreamURLRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("摄像头%d", len(s.added)+1)
	}
	if status == "" {
		status = "在线"
	}
	cam := domain.Camera{
		ID:        fmt.Sprintf("cam-%d", len(s.added)+11),
		Name:      name,
		Status:    status,
		StreamURL: streamURL,
	}
	s.added = append(s.added, cam)
	return cam, nil
}
