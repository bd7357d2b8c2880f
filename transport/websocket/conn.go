package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pointdeck/pointdeck/metrics"
	"github.com/pointdeck/pointdeck/protocol"
	"github.com/pointdeck/pointdeck/pubsub"
	"github.com/pointdeck/pointdeck/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Buffer for hub-to-connection deliveries.
	outboundBuffer = 256
)

// conn is the state machine for one WebSocket: unbound until a Join or
// Subscribe binds it to a session, then subscribed until the socket closes.
// All socket writes happen on the run goroutine.
type conn struct {
	gw *Gateway
	ws *websocket.Conn

	sessionID     string
	participantID string

	// outbound carries hub deliveries from the listener goroutine; nil
	// until the first subscribe.
	outbound     chan []byte
	listenerDone chan struct{}

	// closed stops the read goroutine once the run loop exits.
	closed chan struct{}
}

func newConn(gw *Gateway, ws *websocket.Conn) *conn {
	return &conn{gw: gw, ws: ws, closed: make(chan struct{})}
}

// run drives the connection: it selects between inbound client frames and
// outbound hub deliveries until the socket dies, then cleans up.
func (c *conn) run() {
	metrics.OpenConnections.Inc()
	defer metrics.OpenConnections.Dec()
	defer c.cleanup()
	defer close(c.closed)

	inbound := make(chan []byte)
	go c.readLoop(inbound)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-inbound:
			if !ok {
				return
			}
			c.dispatch(data)

		case data := <-c.outbound:
			if !c.write(data) {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop pumps text frames from the socket into the inbound channel and
// closes it when the socket errors or the client disconnects.
func (c *conn) readLoop(inbound chan<- []byte) {
	defer close(inbound)

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.gw.logger.Error("websocket read", "error", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		select {
		case inbound <- data:
		case <-c.closed:
			return
		}
	}
}

// dispatch decodes a frame and applies the tagged operation. Protocol
// errors go back to this connection only; they never end the loop.
func (c *conn) dispatch(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.sendError(&InvalidMessageError{Detail: err.Error()})
		return
	}
	metrics.MessagesTotal.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case protocol.TypeJoinSession:
		err = c.handleJoin(msg)
	case protocol.TypeSubscribeToSession:
		err = c.subscribe(msg.SessionID)
	case protocol.TypeRemoveParticipant:
		err = c.mutate(msg.SessionID, func(s *room.Session) {
			s.RemoveParticipant(msg.ParticipantID)
		})
	case protocol.TypePointSession:
		err = c.handlePoint(msg)
	case protocol.TypeSetTopic:
		err = c.mutateBound(func(s *room.Session) { s.SetTopic(msg.Topic) })
	case protocol.TypeClearPoints:
		err = c.mutateBound(func(s *room.Session) { s.ClearPoints() })
	case protocol.TypeToggleHidePoints:
		err = c.mutateBound(func(s *room.Session) { s.ToggleHidePoints() })
	case protocol.TypeCreateSession, protocol.TypeAddParticipant:
		// Reserved: session creation goes through the HTTP gateway.
		c.gw.logger.Debug("ignoring reserved message", "type", msg.Type)
	case protocol.TypeSessionUpdate:
		c.gw.logger.Debug("ignoring server-only message from client")
	}

	if err != nil {
		c.sendError(err)
	}
}

// handleJoin adds a new participant to the target session, broadcasts the
// update, and subscribes this connection if it is not already listening.
// A connection bound to one session cannot join another: cleanup could
// never remove that participant, leaving a ghost behind.
func (c *conn) handleJoin(msg *protocol.ClientMessage) error {
	if c.sessionID != "" && c.sessionID != msg.SessionID {
		return ErrAlreadySubscribed
	}
	p, err := c.gw.store.Join(msg.SessionID, msg.ParticipantName)
	if err != nil {
		return &SessionNotFoundError{ID: msg.SessionID}
	}
	c.participantID = p.ID

	sess, err := c.gw.store.Get(msg.SessionID)
	if err != nil {
		return &SessionNotFoundError{ID: msg.SessionID}
	}
	c.publish(msg.SessionID, sess)

	if !c.subscribed() {
		return c.subscribe(msg.SessionID)
	}
	return nil
}

// handlePoint records a vote. A vote for a participant not in the session
// is logged and dropped; the refreshed snapshot still goes out.
func (c *conn) handlePoint(msg *protocol.ClientMessage) error {
	sess, err := c.gw.store.Get(msg.SessionID)
	if err != nil {
		return &SessionNotFoundError{ID: msg.SessionID}
	}

	if err := sess.Point(msg.ParticipantID, msg.Points); err != nil {
		c.gw.logger.Warn("vote for unknown participant",
			"session_id", msg.SessionID, "participant_id", msg.ParticipantID)
	}

	if _, err := c.gw.store.Update(msg.SessionID, sess); err != nil {
		return &InvalidMessageError{Detail: "failed to update session"}
	}
	c.publish(msg.SessionID, sess)
	return nil
}

// mutate runs one read-modify-write cycle against the store and publishes
// the new snapshot. Concurrent mutations of the same session are
// last-write-wins.
func (c *conn) mutate(sessionID string, fn func(*room.Session)) error {
	sess, err := c.gw.store.Get(sessionID)
	if err != nil {
		return &SessionNotFoundError{ID: sessionID}
	}
	fn(sess)
	if _, err := c.gw.store.Update(sessionID, sess); err != nil {
		return &InvalidMessageError{Detail: "failed to update session"}
	}
	c.publish(sessionID, sess)
	return nil
}

// mutateBound is mutate against the session this connection is bound to.
func (c *conn) mutateBound(fn func(*room.Session)) error {
	if c.sessionID == "" {
		return ErrNotSubscribed
	}
	return c.mutate(c.sessionID, fn)
}

func (c *conn) publish(sessionID string, sess *room.Session) {
	c.gw.hub.Publish(sessionID, protocol.NewSessionUpdate(sess))
	metrics.EventsPublished.Inc()
}

func (c *conn) subscribed() bool {
	return c.listenerDone != nil
}

// subscribe binds this connection to a session and spawns the listener
// goroutine bridging hub notifications to the outbound channel.
func (c *conn) subscribe(sessionID string) error {
	if c.subscribed() {
		return ErrAlreadySubscribed
	}
	if _, err := c.gw.store.Get(sessionID); err != nil {
		return &SessionNotFoundError{ID: sessionID}
	}

	c.sessionID = sessionID
	notifier := c.gw.hub.Subscribe(sessionID)
	c.outbound = make(chan []byte, outboundBuffer)
	c.listenerDone = make(chan struct{})
	// Arm the first wait here so a publish landing before the listener
	// goroutine is scheduled still wakes it.
	go c.listen(notifier, notifier.Wait(), sessionID, c.outbound, c.listenerDone)
	return nil
}

// listen waits on the session's notifier and forwards each mailbox snapshot
// to the connection. The next wait channel is armed before the mailbox is
// read, so a publish landing in between is never lost. The payload is
// idempotent full state, so the non-destructive read is deliberate.
func (c *conn) listen(n *pubsub.Notifier, wait <-chan struct{}, sessionID string, out chan<- []byte, done <-chan struct{}) {
	c.gw.logger.Debug("listener started", "session_id", sessionID)
	for {
		select {
		case <-wait:
		case <-done:
			c.gw.logger.Debug("listener stopped", "session_id", sessionID)
			return
		}
		wait = n.Wait()

		event, ok := c.gw.hub.GetEvent(sessionID)
		if !ok {
			continue
		}
		data, err := json.Marshal(event)
		if err != nil {
			c.gw.logger.Error("marshal hub event", "session_id", sessionID, "error", err)
			continue
		}
		select {
		case out <- data:
		case <-done:
			c.gw.logger.Debug("listener stopped", "session_id", sessionID)
			return
		}
	}
}

// cleanup removes this connection's participant from its session (best
// effort: a vanished session is skipped silently), broadcasts the
// departure, and stops the listener. Hub entries stay registered because
// other connections may still be subscribed to this session; the reaper
// clears them once the session itself is gone.
func (c *conn) cleanup() {
	if c.sessionID != "" && c.participantID != "" {
		if err := c.gw.store.Leave(c.sessionID, c.participantID); err == nil {
			if sess, err := c.gw.store.Get(c.sessionID); err == nil {
				c.publish(c.sessionID, sess)
			}
		}
	}

	if c.listenerDone != nil {
		close(c.listenerDone)
		c.listenerDone = nil
	}
	c.ws.Close()
}

// write sends one text frame, reporting whether the connection is still
// usable.
func (c *conn) write(data []byte) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.gw.logger.Error("websocket write", "error", err)
		return false
	}
	return true
}

// sendError reports a protocol error to this connection only.
func (c *conn) sendError(err error) {
	metrics.ProtocolErrors.Inc()
	c.gw.logger.Warn("protocol error", "error", err)
	data, merr := json.Marshal(protocol.NewError(err))
	if merr != nil {
		return
	}
	c.write(data)
}
