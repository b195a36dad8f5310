package application

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var ErrConnectionClosed = errors.New("websocket connection closed")

type channelKey struct{}

// WithChannel tags the upgrade request with the channel the connection joins.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

func channelFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(channelKey{}).(string); ok {
		return v
	}
	return ""
}

type HuberOptions struct {
	Logger          *logrus.Logger
	CheckOrigin     func(r *http.Request) bool
	ReadBufferSize  int
	WriteBufferSize int
}

type Connection interface {
	ID() string
	Channel() string
	SendMessage(msg []byte) error
	Close() error
}

type WsCallback func(ctx context.Context, conn Connection) error

// MessageHandler receives every text frame read from a connection.
type MessageHandler func(ctx context.Context, conn Connection, msg []byte) error

type Huber interface {
	http.Handler
	ForEach(channel string, f WsCallback) error
	Broadcast(channel string, msg []byte)
	OnMessage(h MessageHandler)
	OnConnect(f WsCallback)
	Count(channel string) int
}

func NewHub(opts *HuberOptions) Huber {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &huber{
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     opts.CheckOrigin,
		},
		channels: make(map[string]map[*connection]struct{}),
	}
}

type huber struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	channels  map[string]map[*connection]struct{}
	handlers  []MessageHandler
	onConnect []WsCallback
}

func (h *huber) OnMessage(handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
}

func (h *huber) OnConnect(f WsCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, f)
}

func (h *huber) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := channelFromContext(r.Context())
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	conn := &connection{
		id:      uuid.NewString(),
		channel: channel,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
	h.join(conn)
	go conn.writePump(h.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.mu.RLock()
	onConnect := append([]WsCallback(nil), h.onConnect...)
	h.mu.RUnlock()
	for _, f := range onConnect {
		if err := f(ctx, conn); err != nil {
			h.logger.WithError(err).WithField("channel", channel).Warn("websocket connect callback failed")
		}
	}

	h.readPump(ctx, conn)
	h.leave(conn)
	_ = conn.Close()
}

func (h *huber) readPump(ctx context.Context, conn *connection) {
	conn.ws.SetReadLimit(1 << 20)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, msg, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).WithField("channel", conn.channel).Debug("websocket closed")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		h.mu.RLock()
		handlers := append([]MessageHandler(nil), h.handlers...)
		h.mu.RUnlock()
		for _, handler := range handlers {
			if err := handler(ctx, conn, msg); err != nil {
				h.logger.WithError(err).WithField("channel", conn.channel).Warn("websocket message handler failed")
			}
		}
	}
}

func (h *huber) join(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.channels[conn.channel]
	if !ok {
		set = make(map[*connection]struct{})
		h.channels[conn.channel] = set
	}
	set[conn] = struct{}{}
}

func (h *huber) leave(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.channels[conn.channel]
	delete(set, conn)
	if len(set) == 0 {
		delete(h.channels, conn.channel)
	}
}

func (h *huber) snapshot(channel string) []*connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.channels[channel]
	out := make([]*connection, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *huber) ForEach(channel string, f WsCallback) error {
	ctx := context.Background()
	for _, conn := range h.snapshot(channel) {
		if err := f(ctx, conn); err != nil {
			return err
		}
	}
	return nil
}

func (h *huber) Broadcast(channel string, msg []byte) {
	for _, conn := range h.snapshot(channel) {
		if err := conn.SendMessage(msg); err != nil {
			h.logger.WithError(err).WithField("connection", conn.id).Debug("dropping broadcast")
		}
	}
}

func (h *huber) Count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

type connection struct {
	id      string
	channel string
	ws      *websocket.Conn
	send    chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *connection) ID() string      { return c.id }
func (c *connection) Channel() string { return c.channel }

func (c *connection) SendMessage(msg []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return errors.New("websocket send buffer full")
	}
}

func (c *connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *connection) writePump(log *logrus.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).WithField("connection", c.id).Debug("websocket write failed")
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
