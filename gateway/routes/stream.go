package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"stakeledger/core/events"
	"stakeledger/core/types"
)

const (
	wsWriteTimeout   = 10 * time.Second
	streamBufferSize = 256
)

// eventStream serves committed ledger events over a websocket. The optional
// "types" query parameter is a comma separated list of event types or type
// prefixes ("staking." matches every staking event).
type eventStream struct {
	bus     *events.Bus
	logger  *slog.Logger
	origins []string
}

type streamSubscriber struct {
	filter  []string
	updates chan *types.Event
	dropped chan struct{}
	once    sync.Once
}

func (s *streamSubscriber) matches(eventType string) bool {
	if len(s.filter) == 0 {
		return true
	}
	for _, f := range s.filter {
		if eventType == f || (strings.HasSuffix(f, ".") && strings.HasPrefix(eventType, f)) {
			return true
		}
	}
	return false
}

// Emit never blocks the publisher: a subscriber that cannot keep up is cut off.
func (s *streamSubscriber) Emit(evt events.Event) {
	if evt == nil || evt.Event() == nil || !s.matches(evt.EventType()) {
		return
	}
	select {
	case s.updates <- evt.Event().Clone():
	default:
		s.once.Do(func() { close(s.dropped) })
	}
}

func parseFilter(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (es *eventStream) serve(w http.ResponseWriter, r *http.Request) {
	if es.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "event stream unavailable")
		return
	}
	origins := es.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// subscribe before the handshake completes so no event committed after
	// the client connected is missed
	sub := &streamSubscriber{
		filter:  parseFilter(r.URL.Query().Get("types")),
		updates: make(chan *types.Event, streamBufferSize),
		dropped: make(chan struct{}),
	}
	unsubscribe := es.bus.Subscribe(sub)
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// the read loop only notices the client going away
	ctx := conn.CloseRead(r.Context())
	if err := es.pump(ctx, conn, sub); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			es.logger.Debug("event stream ended", slog.String("error", err.Error()))
		}
	}
}

func (es *eventStream) pump(ctx context.Context, conn *websocket.Conn, sub *streamSubscriber) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.dropped:
			return conn.Close(websocket.StatusTryAgainLater, "subscriber too slow")
		case evt := <-sub.updates:
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
