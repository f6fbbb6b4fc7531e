package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"igdm/internal/model/api"
)

// WatchThread opens the live watch socket for target and invokes onEvent
// for every frame until ctx is done or the socket closes.
func (c *Client) WatchThread(ctx context.Context, target string, onEvent func(api.WSEvent)) error {
	wsBase := strings.Replace(c.base, "http", "ws", 1)
	endpoint := wsBase + "/ws/thread/" + url.PathEscape(target)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch rejected: %s", resp.Status)
		}
		return fmt.Errorf("watch connect: %w", err)
	}
	defer conn.Close()

	// Close the socket when the caller gives up, which unblocks ReadJSON.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var event api.WSEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch closed: %w", err)
		}
		onEvent(event)
	}
}
