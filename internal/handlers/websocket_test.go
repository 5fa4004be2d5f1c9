package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/websocket"
	"github.com/thereayou/link/pkg/auth"
)

type wsConn struct {
	t    *testing.T
	conn *gorilla.Conn
}

func dial(t *testing.T, srv *httptest.Server, query string) *wsConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsConn{t: t, conn: conn}
}

func (c *wsConn) send(typ websocket.MessageType, groupID uint, data any) {
	c.t.Helper()
	msg := map[string]any{"type": typ}
	if groupID != 0 {
		msg["group_id"] = groupID
	}
	if data != nil {
		msg["data"] = data
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// next возвращает следующее сообщение, пропуская служебные unread_count и ping.
func (c *wsConn) next(timeout time.Duration) (websocket.Message, bool) {
	c.t.Helper()
	for {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		var m websocket.Message
		if err := c.conn.ReadJSON(&m); err != nil {
			return websocket.Message{}, false
		}
		if m.Type == websocket.TypeUnreadCount || m.Type == websocket.TypePing {
			continue
		}
		return m, true
	}
}

func (c *wsConn) expect(typ websocket.MessageType) websocket.Message {
	c.t.Helper()
	m, ok := c.next(2 * time.Second)
	if !ok {
		c.t.Fatalf("expected %s, got nothing", typ)
	}
	if m.Type != typ {
		c.t.Fatalf("expected %s, got %s: %s", typ, m.Type, m.Data)
	}
	return m
}

func (c *wsConn) expectNothing() {
	c.t.Helper()
	if m, ok := c.next(150 * time.Millisecond); ok {
		c.t.Fatalf("unexpected %s: %s", m.Type, m.Data)
	}
}

func (c *wsConn) auth(userID uint) {
	c.t.Helper()
	c.send(websocket.TypeAuth, 0, map[string]any{"user_id": userID})
	c.expect(websocket.TypeAuthSuccess)
}

type wsFixture struct {
	app   *testApp
	srv   *httptest.Server
	alice uint
	bob   uint
	carol uint
	group *models.Group
}

func newWSFixture(t *testing.T, tokens TokenVerifier) *wsFixture {
	t.Helper()
	app := newTestApp(t, tokens)
	f := &wsFixture{app: app}
	f.alice, _ = app.register(t, "alice")
	f.bob, _ = app.register(t, "bob")
	f.carol, _ = app.register(t, "carol")

	ctx := context.Background()
	g, err := app.svc.CreateGroup(ctx, groups.CreateGroupInput{CreatorID: f.alice, Name: "crew"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.svc.AddMember(ctx, g.ID, f.alice, f.bob, ""); err != nil {
		t.Fatal(err)
	}
	f.group = g

	f.srv = httptest.NewServer(app.router)
	t.Cleanup(f.srv.Close)
	return f
}

func TestJoinRequiresAuthentication(t *testing.T) {
	f := newWSFixture(t, nil)
	c := dial(t, f.srv, "")

	c.send(websocket.TypeJoinGroup, f.group.ID, nil)
	m := c.expect(websocket.TypeError)
	var ev websocket.ErrorEvent
	_ = json.Unmarshal(m.Data, &ev)
	if ev.Code != "auth" {
		t.Fatalf("error code = %q, want auth", ev.Code)
	}
	c.expectNothing()

	// неизвестный пользователь: auth_error, соединение остается открытым
	c.send(websocket.TypeAuth, 0, map[string]any{"user_id": 999})
	c.expect(websocket.TypeAuthError)
	c.send(websocket.TypeJoinGroup, f.group.ID, nil)
	c.expect(websocket.TypeError)

	c.auth(f.bob)
	c.send(websocket.TypeJoinGroup, f.group.ID, nil)
	c.expect(websocket.TypeRecentMessages)
}

func TestJoinReplaysRecentMessagesNewestFirst(t *testing.T) {
	f := newWSFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 55; i++ {
		if _, err := f.app.svc.PostMessage(ctx, groups.PostMessageInput{GroupID: f.group.ID, SenderID: f.alice, Text: "m"}); err != nil {
			t.Fatal(err)
		}
	}

	c := dial(t, f.srv, "")
	c.auth(f.bob)
	c.send(websocket.TypeJoinGroup, f.group.ID, nil)

	m := c.expect(websocket.TypeRecentMessages)
	var ev websocket.RecentMessages
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if len(ev.Messages) != 50 {
		t.Fatalf("replayed %d messages, want 50", len(ev.Messages))
	}
	for i := 1; i < len(ev.Messages); i++ {
		if ev.Messages[i-1].ID < ev.Messages[i].ID {
			t.Fatalf("not newest first at %d", i)
		}
	}
	c.expectNothing()

	if n, _ := f.app.svc.UnreadCount(ctx, f.bob, f.group.ID); n != 0 {
		t.Fatalf("unread after join = %d", n)
	}
}

func TestOutsiderCannotJoin(t *testing.T) {
	f := newWSFixture(t, nil)
	c := dial(t, f.srv, "")
	c.auth(f.carol)

	c.send(websocket.TypeJoinGroup, f.group.ID, nil)
	m := c.expect(websocket.TypeError)
	var ev websocket.ErrorEvent
	_ = json.Unmarshal(m.Data, &ev)
	if ev.Code != "forbidden" {
		t.Fatalf("code = %q, want forbidden", ev.Code)
	}
}

func TestChatBroadcastGatedByJoin(t *testing.T) {
	f := newWSFixture(t, nil)

	alice := dial(t, f.srv, "")
	alice.auth(f.alice)
	alice.send(websocket.TypeJoinGroup, f.group.ID, nil)
	alice.expect(websocket.TypeRecentMessages)

	// bob состоит в группе, но не присоединился к ней на этом соединении
	bob := dial(t, f.srv, "")
	bob.auth(f.bob)

	alice.send(websocket.TypeChatMessage, f.group.ID, map[string]any{"message": "hello"})
	m := alice.expect(websocket.TypeNewMessage)
	var ev websocket.NewMessage
	_ = json.Unmarshal(m.Data, &ev)
	if ev.Message.Message != "hello" || ev.Message.UserID != f.alice {
		t.Fatalf("new_message = %+v", ev.Message)
	}
	bob.expectNothing()

	bob.send(websocket.TypeJoinGroup, f.group.ID, nil)
	bob.expect(websocket.TypeRecentMessages)
	alice.send(websocket.TypeChatMessage, f.group.ID, map[string]any{"message": "again"})
	alice.expect(websocket.TypeNewMessage)
	bob.expect(websocket.TypeNewMessage)

	bob.send(websocket.TypeLeaveGroup, f.group.ID, nil)
	bob.expect(websocket.TypeLeftGroup)
	alice.send(websocket.TypeChatMessage, f.group.ID, map[string]any{"message": "third"})
	alice.expect(websocket.TypeNewMessage)
	bob.expectNothing()
}

func TestVoteBroadcastsTally(t *testing.T) {
	f := newWSFixture(t, nil)
	ev, err := f.app.svc.CreateEvent(context.Background(), f.alice, models.Event{
		Title: "Picnic", Type: models.EventSocial, Date: time.Now().Add(24 * time.Hour), Tags: []string{"outdoor"},
	})
	if err != nil {
		t.Fatal(err)
	}

	alice := dial(t, f.srv, "")
	alice.auth(f.alice)
	alice.send(websocket.TypeJoinGroup, f.group.ID, nil)
	alice.expect(websocket.TypeRecentMessages)

	bob := dial(t, f.srv, "")
	bob.auth(f.bob)
	bob.send(websocket.TypeJoinGroup, f.group.ID, nil)
	bob.expect(websocket.TypeRecentMessages)

	bob.send(websocket.TypeEventVote, f.group.ID, map[string]any{"event_id": ev.ID, "vote": "yes"})
	alice.expect(websocket.TypeVoteUpdate)
	bob.expect(websocket.TypeVoteUpdate)

	bob.send(websocket.TypeEventVote, f.group.ID, map[string]any{"event_id": ev.ID, "vote": "maybe"})
	m := alice.expect(websocket.TypeVoteUpdate)
	var upd websocket.VoteUpdate
	_ = json.Unmarshal(m.Data, &upd)
	if upd.VoteCounts != (models.VoteCounts{Maybe: 1}) || upd.Vote.UserID != f.bob {
		t.Fatalf("vote_update = %+v", upd)
	}

	bob.send(websocket.TypeEventVote, f.group.ID, map[string]any{"event_id": ev.ID, "vote": "perhaps"})
	em := bob.expect(websocket.TypeError)
	var e websocket.ErrorEvent
	_ = json.Unmarshal(em.Data, &e)
	if e.Code != "validation" {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	f := newWSFixture(t, nil)
	c := dial(t, f.srv, "")

	if err := c.conn.WriteMessage(gorilla.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	c.expect(websocket.TypeError)
	c.send("teleport", 0, nil)
	c.expect(websocket.TypeError)
	c.auth(f.alice)
}

func TestTokenRequiredForRealtimeAuth(t *testing.T) {
	f := newWSFixture(t, auth.NewJWTManager(testSecret, time.Hour))

	c := dial(t, f.srv, "")
	c.send(websocket.TypeAuth, 0, map[string]any{"user_id": f.bob})
	c.expect(websocket.TypeAuthError)

	token, err := f.app.jwt.Generate(f.alice)
	if err != nil {
		t.Fatal(err)
	}
	c.send(websocket.TypeAuth, 0, map[string]any{"user_id": f.bob, "token": token})
	c.expect(websocket.TypeAuthError)

	bobToken, _ := f.app.jwt.Generate(f.bob)
	c.send(websocket.TypeAuth, 0, map[string]any{"user_id": f.bob, "token": bobToken})
	c.expect(websocket.TypeAuthSuccess)

	// токен в query аутентифицирует сразу при подключении
	q := dial(t, f.srv, "?token="+bobToken)
	q.expect(websocket.TypeAuthSuccess)
}

func TestGroupMemberAddedReachesLiveConnections(t *testing.T) {
	f := newWSFixture(t, nil)
	c := dial(t, f.srv, "")
	c.auth(f.carol)

	if _, err := f.app.svc.AddMember(context.Background(), f.group.ID, f.alice, f.carol, ""); err != nil {
		t.Fatal(err)
	}
	m := c.expect(websocket.TypeGroupMemberAdded)
	var ev websocket.GroupMemberAdded
	_ = json.Unmarshal(m.Data, &ev)
	if ev.Group.ID != f.group.ID {
		t.Fatalf("group = %+v", ev.Group)
	}
}

func TestRemovedMemberStopsReceivingGroupEvents(t *testing.T) {
	f := newWSFixture(t, nil)

	alice := dial(t, f.srv, "")
	alice.auth(f.alice)
	alice.send(websocket.TypeJoinGroup, f.group.ID, nil)
	alice.expect(websocket.TypeRecentMessages)

	bob := dial(t, f.srv, "")
	bob.auth(f.bob)
	bob.send(websocket.TypeJoinGroup, f.group.ID, nil)
	bob.expect(websocket.TypeRecentMessages)

	if err := f.app.svc.RemoveMember(context.Background(), f.group.ID, f.alice, f.bob); err != nil {
		t.Fatal(err)
	}
	m := bob.expect(websocket.TypeLeftGroup)
	if m.GroupID == nil || *m.GroupID != f.group.ID {
		t.Fatalf("left_group for %v, want %d", m.GroupID, f.group.ID)
	}

	alice.send(websocket.TypeChatMessage, f.group.ID, map[string]any{"message": "secret"})
	alice.expect(websocket.TypeNewMessage)
	bob.expectNothing()

	bob.send(websocket.TypeJoinGroup, f.group.ID, nil)
	m = bob.expect(websocket.TypeError)
	var ev websocket.ErrorEvent
	_ = json.Unmarshal(m.Data, &ev)
	if ev.Code != "forbidden" {
		t.Fatalf("rejoin code = %q, want forbidden", ev.Code)
	}
}

func TestPresenceReflectsLiveConnections(t *testing.T) {
	f := newWSFixture(t, nil)
	token, err := f.app.jwt.Generate(f.bob)
	if err != nil {
		t.Fatal(err)
	}

	alice := dial(t, f.srv, "")
	alice.auth(f.alice)
	alice.send(websocket.TypeJoinGroup, f.group.ID, nil)
	alice.expect(websocket.TypeRecentMessages)
	// carol онлайн, но не участница группы
	carol := dial(t, f.srv, "")
	carol.auth(f.carol)

	w := f.app.do(t, http.MethodGet, fmt.Sprintf("/api/groups/%d/presence", f.group.ID), token, nil)
	var p coordination.GroupPresence
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || len(p.Online) != 1 || p.Online[0] != f.alice || len(p.InChat) != 1 || p.InChat[0] != f.alice {
		t.Fatalf("presence: %d %s", w.Code, w.Body)
	}
}
