package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/link/internal/services"
	"go.uber.org/zap"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 512 * 1024 // 512KB

	sendBuffer = 256
)

// ClientMessageHandler обрабатывает входящий кадр. Сообщения одного соединения
// обрабатываются строго по очереди.
type ClientMessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, raw []byte) error
}

type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Hub  *Hub

	send chan []byte
	log  *zap.Logger

	mu            sync.RWMutex
	closed        bool
	userID        uint
	authenticated bool
	groups        map[uint]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &Client{
		ID:          id,
		Conn:        conn,
		Hub:         hub,
		send:   make(chan []byte, sendBuffer),
		log:    log.With(zap.String("client_id", id.String())),
		groups: make(map[uint]bool),
	}
}

// ReadPump читает сообщения от клиента
func (c *Client) ReadPump(ctx context.Context, handler ClientMessageHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		if handler == nil {
			continue
		}
		if err := handler.HandleMessage(ctx, c, raw); err != nil {
			c.log.Debug("message rejected", zap.String("code", ErrorCode(err)), zap.Error(err))
			c.SendError(err)
		}
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				return
			}

			// Отправляем все накопившиеся сообщения
			n := len(c.send)
			for i := 0; i < n; i++ {
				queued, ok := <-c.send
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueue(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// SendEvent ставит событие в очередь соединения.
func (c *Client) SendEvent(ev Event, groupID uint) error {
	data, err := Encode(ev, groupID, 0)
	if err != nil {
		return err
	}
	if err := c.enqueue(data); err != nil {
		c.log.Warn("dropping event", zap.String("type", string(ev.Type())), zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) SendError(err error) {
	_ = c.SendEvent(ErrorEvent{Error: err.Error(), Code: ErrorCode(err)}, 0)
}

// ErrorCode - стабильный код ошибки для клиента.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrUnknownType):
		return "validation"
	case errors.Is(err, ErrNotAuthenticated):
		return "auth"
	}
	return services.ErrorKind(err)
}

func (c *Client) authenticate(userID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = userID
	c.authenticated = true
	c.groups = make(map[uint]bool)
}

func (c *Client) deauthenticate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = 0
	c.authenticated = false
	c.groups = make(map[uint]bool)
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) UserID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Client) addGroup(groupID uint) {
	c.mu.Lock()
	c.groups[groupID] = true
	c.mu.Unlock()
}

func (c *Client) removeGroup(groupID uint) {
	c.mu.Lock()
	delete(c.groups, groupID)
	c.mu.Unlock()
}

func (c *Client) IsInGroup(groupID uint) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groups[groupID]
}

func (c *Client) JoinedGroups() []uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.groups)
}

func sortedKeys(m map[uint]bool) []uint {
	out := make([]uint, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
