package groups

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thereayou/link/internal/memstore"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

type fixture struct {
	store *memstore.Store
	c     *Coordinator
	mu    sync.Mutex
	clock time.Time
	users map[string]uint
	group *models.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store: memstore.New(),
		clock: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		users: make(map[string]uint),
	}
	f.c = NewCoordinator(f.store).WithClock(func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.clock = f.clock.Add(time.Second)
		return f.clock
	})
	for _, name := range []string{"admin", "member", "outsider"} {
		u := &models.User{Username: name, Email: name + "@example.com"}
		if err := f.store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
		f.users[name] = u.ID
	}

	g, err := f.c.CreateGroup(ctx, CreateGroupInput{CreatorID: f.users["admin"], Name: "Friday crew"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	f.group = g
	if _, err := f.c.AddMember(ctx, g.ID, f.users["admin"], f.users["member"], ""); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return f
}

func TestCreateGroupMakesCreatorAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.store.GetActiveMembership(ctx, f.group.ID, f.users["admin"])
	if err != nil {
		t.Fatal(err)
	}
	if m.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want admin", m.Role)
	}
	if f.group.Type != models.GroupSocial || !f.group.IsActive {
		t.Fatalf("unexpected defaults: %+v", f.group)
	}

	if _, err := f.c.CreateGroup(ctx, CreateGroupInput{CreatorID: f.users["admin"], Name: "  "}); services.ErrorKind(err) != "validation" {
		t.Fatalf("blank name: got %v", err)
	}
	if _, err := f.c.CreateGroup(ctx, CreateGroupInput{CreatorID: 999, Name: "x"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown creator: got %v", err)
	}
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.c.AddMember(ctx, f.group.ID, f.users["member"], f.users["outsider"], models.RoleMember)
	if !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("member adding: got %v, want ErrForbidden", err)
	}
	_, err = f.c.AddMember(ctx, f.group.ID, f.users["outsider"], f.users["outsider"], models.RoleMember)
	if !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("outsider adding: got %v, want ErrForbidden", err)
	}
	_, err = f.c.AddMember(ctx, 404, f.users["admin"], f.users["outsider"], models.RoleMember)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown group: got %v, want ErrNotFound", err)
	}
	_, err = f.c.AddMember(ctx, f.group.ID, f.users["admin"], 404, models.RoleMember)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown user: got %v, want ErrNotFound", err)
	}
	_, err = f.c.AddMember(ctx, f.group.ID, f.users["admin"], f.users["member"], models.RoleMember)
	if services.ErrorKind(err) != "validation" {
		t.Fatalf("duplicate: got %v, want validation", err)
	}

	g, _ := f.c.Group(ctx, f.group.ID)
	if g.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", g.MemberCount)
	}
}

func TestRemoveMemberAndLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.c.AddMember(ctx, f.group.ID, f.users["admin"], f.users["outsider"], ""); err != nil {
		t.Fatal(err)
	}
	if err := f.c.RemoveMember(ctx, f.group.ID, f.users["member"], f.users["outsider"]); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("member removing other: got %v", err)
	}
	if err := f.c.RemoveMember(ctx, f.group.ID, f.users["member"], f.users["member"]); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if ok, _ := f.c.IsMember(ctx, f.group.ID, f.users["member"]); ok {
		t.Fatal("user is still a member after leaving")
	}
	if err := f.c.RemoveMember(ctx, f.group.ID, f.users["admin"], f.users["outsider"]); err != nil {
		t.Fatalf("admin removing: %v", err)
	}
	if err := f.c.RemoveMember(ctx, f.group.ID, f.users["admin"], f.users["outsider"]); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second removal: got %v", err)
	}

	members, err := f.c.Members(ctx, f.group.ID, f.users["admin"])
	if err != nil || len(members) != 1 {
		t.Fatalf("members = %v, %v", members, err)
	}
	if _, err := f.c.Members(ctx, f.group.ID, f.users["outsider"]); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("outsider listing: got %v", err)
	}
}

func TestPostMessageReferenceData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		raw  json.RawMessage
		want string
	}{
		{"absent", nil, ""},
		{"json null", json.RawMessage("null"), ""},
		{"padded null", json.RawMessage(" null "), ""},
		{"object", json.RawMessage(`{"event_id":7}`), `{"event_id":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := f.c.PostMessage(ctx, PostMessageInput{
				GroupID: f.group.ID, SenderID: f.users["member"], Text: "see this", ReferenceData: tt.raw,
			})
			if err != nil {
				t.Fatal(err)
			}
			if string(msg.ReferenceData) != tt.want {
				t.Fatalf("reference data = %q, want %q", msg.ReferenceData, tt.want)
			}
			if tt.want == "" && msg.ReferenceData != nil {
				t.Fatalf("reference data = %#v, want nil", msg.ReferenceData)
			}
		})
	}

	_, err := f.c.PostMessage(ctx, PostMessageInput{
		GroupID: f.group.ID, SenderID: f.users["member"], Text: "x", ReferenceData: json.RawMessage("{nope"),
	})
	if services.ErrorKind(err) != "validation" {
		t.Fatalf("invalid reference data: got %v", err)
	}
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.c.PostMessage(ctx, PostMessageInput{GroupID: f.group.ID, SenderID: f.users["outsider"], Text: "hi"})
	if !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("non-member: got %v, want ErrForbidden", err)
	}

	if _, err := f.c.PostMessage(ctx, PostMessageInput{GroupID: f.group.ID, SenderID: f.users["admin"], Text: "first"}); err != nil {
		t.Fatal(err)
	}
	msg, err := f.c.PostMessage(ctx, PostMessageInput{GroupID: f.group.ID, SenderID: f.users["member"], Text: " hello "})
	if err != nil {
		t.Fatal(err)
	}
	if msg.IsRead || msg.MessageType != models.MessageText || msg.Message != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	latest, err := f.c.ListMessages(ctx, f.group.ID, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 || latest[0].ID != msg.ID {
		t.Fatalf("newest message = %+v, want id %d", latest, msg.ID)
	}

	_, err = f.c.PostMessage(ctx, PostMessageInput{GroupID: 404, SenderID: f.users["admin"], Text: "x"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown group: got %v", err)
	}
	_, err = f.c.PostMessage(ctx, PostMessageInput{GroupID: f.group.ID, SenderID: f.users["admin"], Text: "x", Type: "video"})
	if services.ErrorKind(err) != "validation" {
		t.Fatalf("bad type: got %v", err)
	}
}

func TestResentMessageIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := PostMessageInput{GroupID: f.group.ID, SenderID: f.users["member"], Text: "same"}
	for i := 0; i < 2; i++ {
		if _, err := f.c.PostMessage(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	msgs, _ := f.c.ListMessages(ctx, f.group.ID, 0, 0)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
}

func TestMarkReadAndUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, sender := range []string{"admin", "member", "member"} {
		if _, err := f.c.PostMessage(ctx, PostMessageInput{GroupID: f.group.ID, SenderID: f.users[sender], Text: "m"}); err != nil {
			t.Fatal(err)
		}
	}

	n, _ := f.c.UnreadCount(ctx, f.users["admin"], f.group.ID)
	if n != 2 {
		t.Fatalf("unread for admin = %d, want 2", n)
	}
	if _, err := f.c.MarkRead(ctx, f.users["outsider"], f.group.ID); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("outsider mark read: got %v", err)
	}
	marked, err := f.c.MarkRead(ctx, f.users["admin"], f.group.ID)
	if err != nil || marked != 3 {
		t.Fatalf("marked = %d, %v; want 3", marked, err)
	}
	if n, _ := f.c.UnreadCount(ctx, f.users["member"], f.group.ID); n != 0 {
		t.Fatalf("unread after mark = %d", n)
	}
}

func TestConcurrentPostAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.c.PostMessage(ctx, PostMessageInput{GroupID: f.group.ID, SenderID: f.users["member"], Text: "x"})
		}()
		go func() {
			defer wg.Done()
			_, _ = f.c.MarkRead(ctx, f.users["admin"], f.group.ID)
		}()
	}
	wg.Wait()

	if _, err := f.c.MarkRead(ctx, f.users["admin"], f.group.ID); err != nil {
		t.Fatal(err)
	}
	msgs, _ := f.c.ListMessages(ctx, f.group.ID, 100, 0)
	if len(msgs) != 20 {
		t.Fatalf("messages = %d, want 20", len(msgs))
	}
	for _, m := range msgs {
		if !m.IsRead {
			t.Fatalf("message %d left unread", m.ID)
		}
	}
}

func TestVotesLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := &models.Event{Title: "Picnic", Type: models.EventSocial, HostID: f.users["admin"]}
	if err := f.store.CreateEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	if _, err := f.c.CastVote(ctx, f.group.ID, f.users["member"], ev.ID, models.VoteYes); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CastVote(ctx, f.group.ID, f.users["member"], ev.ID, models.VoteNo); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CastVote(ctx, f.group.ID, f.users["admin"], ev.ID, models.VoteMaybe); err != nil {
		t.Fatal(err)
	}

	counts, err := f.c.Tally(ctx, f.group.ID, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts != (models.VoteCounts{Yes: 0, No: 1, Maybe: 1}) {
		t.Fatalf("tally = %+v", counts)
	}
	history, _ := f.c.Votes(ctx, f.group.ID, ev.ID)
	if len(history) != 3 {
		t.Fatalf("history = %d, want 3", len(history))
	}

	if _, err := f.c.CastVote(ctx, f.group.ID, f.users["outsider"], ev.ID, models.VoteYes); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("outsider vote: got %v", err)
	}
	if _, err := f.c.CastVote(ctx, f.group.ID, f.users["member"], 404, models.VoteYes); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown event: got %v", err)
	}
	if _, err := f.c.CastVote(ctx, f.group.ID, f.users["member"], ev.ID, "perhaps"); services.ErrorKind(err) != "validation" {
		t.Fatalf("bad vote: got %v", err)
	}
}

func TestTallyUsesOrder(t *testing.T) {
	history := []models.EventVote{
		{ID: 1, UserID: 1, Vote: models.VoteYes},
		{ID: 2, UserID: 2, Vote: models.VoteYes},
		{ID: 3, UserID: 1, Vote: models.VoteMaybe},
	}
	if got := Tally(history); got != (models.VoteCounts{Yes: 1, Maybe: 1}) {
		t.Fatalf("got %+v", got)
	}
}
