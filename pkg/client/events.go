package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/pkg/errors"
)

// Subscribe opens the server-sent event stream. The channel is closed
// when the stream ends for any reason; the caller must then resync.
func (c *Client) Subscribe(ctx context.Context) (<-chan event.Event, error) {
	req, err := c.request(ctx, http.MethodGet, c.resolve("/v1/events"), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode}
	}

	ch := make(chan event.Event, 64)

	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var (
			currentType event.Type
			currentData []byte
		)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				if len(currentData) > 0 {
					var evt event.Event
					if err := json.Unmarshal(currentData, &evt); err != nil {
						log.Warn("discarding malformed event", "type", currentType, "error", err)
					} else {
						if evt.Type == "" {
							evt.Type = currentType
						}
						select {
						case ch <- evt:
						case <-ctx.Done():
							return
						}
					}
				}
				currentType = ""
				currentData = nil
				continue
			}

			if bytes.HasPrefix(line, []byte(":")) {
				continue // ping
			}

			parts := bytes.SplitN(line, []byte(":"), 2)
			if len(parts) < 2 {
				continue
			}

			field := string(bytes.TrimSpace(parts[0]))
			value := bytes.TrimPrefix(parts[1], []byte(" "))

			switch field {
			case "event":
				currentType = event.Type(value)
			case "data":
				currentData = append(currentData, value...)
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.Warn("event stream ended", "error", errors.WithStack(err))
		}
	}()

	return ch, nil
}
