package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SSEDialer — транспорт по умолчанию: text/event-stream поверх HTTP GET.
type SSEDialer struct {
	HTTP *http.Client
}

func NewSSEDialer(httpClient *http.Client) *SSEDialer {
	if httpClient == nil {
		// Без Timeout: поток живет часами, обрыв ловим по ошибке чтения
		httpClient = &http.Client{}
	}
	return &SSEDialer{HTTP: httpClient}
}

func (d *SSEDialer) Dial(ctx context.Context, url string) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sse: unexpected status %d", resp.StatusCode)
	}

	return &sseConn{
		resp:    resp,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

type sseConn struct {
	resp    *http.Response
	scanner *bufio.Scanner
}

// Next собирает один кадр формата event-stream: строки "event:"/"data:"
// до пустой строки-разделителя. Комментарии (строки с ':') пропускаются.
func (c *sseConn) Next() (Frame, error) {
	var (
		event string
		data  bytes.Buffer
		seen  bool
	)

	for c.scanner.Scan() {
		line := c.scanner.Text()

		if line == "" {
			if seen {
				return Frame{Event: event, Data: data.Bytes()}, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		if v, ok := strings.CutPrefix(line, "event:"); ok {
			event = strings.TrimSpace(v)
			seen = true
		} else if v, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(v, " "))
			seen = true
		}
	}

	if err := c.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, fmt.Errorf("sse: stream closed")
}

func (c *sseConn) Close() error {
	return c.resp.Body.Close()
}
