package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const appPingInterval = 30 * time.Second

// Hub хранит живые соединения и группы, к которым они присоединились.
// Состояние соединения не переживает его закрытие.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по userID (один пользователь может иметь несколько соединений)
	userClients map[uint]map[uuid.UUID]*Client

	// Клиенты, присоединившиеся к группе
	groups map[uint]map[uuid.UUID]*Client

	// Каналы для регистрации/отмены регистрации
	register   chan *Client
	unregister chan *Client

	mu  sync.RWMutex
	log *zap.Logger

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uint]map[uuid.UUID]*Client),
		groups:      make(map[uint]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(appPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.closeSend()
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(h.clients, id)
	}
	h.userClients = make(map[uint]map[uuid.UUID]*Client)
	h.groups = make(map[uint]map[uuid.UUID]*Client)
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.log.Debug("client registered", zap.String("client_id", client.ID.String()))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.detachUnsafe(client)
	delete(h.clients, client.ID)
	client.closeSend()

	h.log.Debug("client unregistered",
		zap.String("client_id", client.ID.String()),
		zap.Uint("user_id", client.UserID()),
	)
}

// detachUnsafe убирает клиента из индекса пользователей и из всех групп.
func (h *Hub) detachUnsafe(client *Client) {
	for _, gid := range client.JoinedGroups() {
		h.removeFromGroupUnsafe(client, gid)
	}
	if uid := client.UserID(); uid != 0 {
		if set, ok := h.userClients[uid]; ok {
			delete(set, client.ID)
			if len(set) == 0 {
				delete(h.userClients, uid)
			}
		}
	}
}

// BindUser привязывает соединение к пользователю. Повторная аутентификация
// сбрасывает группы, к которым соединение присоединилось раньше.
func (h *Hub) BindUser(client *Client, userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detachUnsafe(client)
	client.authenticate(userID)

	if _, ok := h.userClients[userID]; !ok {
		h.userClients[userID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[userID][client.ID] = client
}

// UnbindUser снимает аутентификацию: соединение остается открытым, но без пользователя и групп.
func (h *Hub) UnbindUser(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detachUnsafe(client)
	client.deauthenticate()
}

// JoinGroup добавляет клиента в группу. Проверку членства делает вызывающий.
func (h *Hub) JoinGroup(client *Client, groupID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.isClosed() {
		return
	}

	if _, ok := h.groups[groupID]; !ok {
		h.groups[groupID] = make(map[uuid.UUID]*Client)
	}
	h.groups[groupID][client.ID] = client
	client.addGroup(groupID)
}

// LeaveGroup удаляет клиента из группы
func (h *Hub) LeaveGroup(client *Client, groupID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromGroupUnsafe(client, groupID)
}

// EvictFromGroup выводит из группы все соединения пользователя, например после
// удаления из участников. Каждое выведенное соединение получает left_group.
func (h *Hub) EvictFromGroup(userID, groupID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	evicted := 0
	for _, client := range h.userClients[userID] {
		if !client.IsInGroup(groupID) {
			continue
		}
		h.removeFromGroupUnsafe(client, groupID)
		_ = client.SendEvent(LeftGroup{}, groupID)
		evicted++
	}
	return evicted
}

func (h *Hub) removeFromGroupUnsafe(client *Client, groupID uint) {
	client.removeGroup(groupID)
	if set, ok := h.groups[groupID]; ok {
		delete(set, client.ID)
		if len(set) == 0 {
			delete(h.groups, groupID)
		}
	}
}

// BroadcastToGroup отправляет событие всем соединениям, присоединившимся к группе.
// Медленный клиент теряет свою копию и не задерживает остальных. Возвращает число доставленных копий.
func (h *Hub) BroadcastToGroup(groupID uint, ev Event) int {
	data, err := Encode(ev, groupID, 0)
	if err != nil {
		h.log.Error("encode broadcast", zap.String("type", string(ev.Type())), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.groups[groupID] {
		if err := client.enqueue(data); err != nil {
			h.log.Warn("dropping broadcast for slow client",
				zap.String("client_id", client.ID.String()),
				zap.Uint("group_id", groupID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

// NotifyUser отправляет событие на все соединения пользователя
func (h *Hub) NotifyUser(userID uint, ev Event) int {
	data, err := Encode(ev, 0, userID)
	if err != nil {
		h.log.Error("encode notification", zap.String("type", string(ev.Type())), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.userClients[userID] {
		if err := client.enqueue(data); err != nil {
			h.log.Warn("dropping notification for slow client",
				zap.String("client_id", client.ID.String()),
				zap.Uint("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) ping() {
	data, err := Encode(Ping{}, 0, 0)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		_ = client.enqueue(data)
	}
}

// OnlineUsers возвращает пользователей с хотя бы одним аутентифицированным соединением
func (h *Hub) OnlineUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint, 0, len(h.userClients))
	for uid := range h.userClients {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// GroupUsers возвращает пользователей, чьи соединения присоединились к группе
func (h *Hub) GroupUsers(groupID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]bool)
	users := make([]uint, 0)
	for _, client := range h.groups[groupID] {
		uid := client.UserID()
		if uid == 0 || seen[uid] {
			continue
		}
		seen[uid] = true
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
