package matching

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thereayou/link/internal/models"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

type fakeOracle struct {
	ranked []RankedCandidate
	tags   []string
	slot   models.SlotSuggestion
	err    error
	block  bool
	calls  atomic.Int32
}

func (f *fakeOracle) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeOracle) Rank(ctx context.Context, _ RankRequest) ([]RankedCandidate, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.ranked, nil
}

func (f *fakeOracle) SuggestTags(ctx context.Context, _ TagRequest) ([]string, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.tags, nil
}

func (f *fakeOracle) SuggestMutualSlot(ctx context.Context, _ []UserAvailability) (models.SlotSuggestion, error) {
	if err := f.wait(ctx); err != nil {
		return models.SlotSuggestion{}, err
	}
	return f.slot, nil
}

func ids(users []models.User) []uint {
	out := make([]uint, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestCompatibilityScore(t *testing.T) {
	a := models.User{ID: 1, Interests: []string{"x", "y"}, Skills: []string{"p"}, CareerPath: strPtr("Eng")}
	if got := CompatibilityScore(a, a); got != 100 {
		t.Fatalf("self score = %d, want 100", got)
	}

	tests := []struct {
		name string
		a, b models.User
		want int
	}{
		{
			name: "half interests",
			a:    models.User{Interests: []string{"chess", "go"}},
			b:    models.User{Interests: []string{"Chess "}},
			want: 25,
		},
		{
			name: "skills and career",
			a:    models.User{Skills: []string{"go", "sql", "k8s"}, CareerPath: strPtr("backend")},
			b:    models.User{Skills: []string{"go"}, CareerPath: strPtr("Backend")},
			want: 30,
		},
		{
			name: "one career missing",
			a:    models.User{CareerPath: strPtr("design")},
			b:    models.User{},
			want: 0,
		},
		{
			name: "empty",
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompatibilityScore(tt.a, tt.b); got != tt.want {
				t.Errorf("score(a,b) = %d, want %d", got, tt.want)
			}
			if got := CompatibilityScore(tt.b, tt.a); got != tt.want {
				t.Errorf("score(b,a) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankUsersForEventFiltersAndOrders(t *testing.T) {
	e := NewEngine(zap.NewNop())
	event := models.Event{
		ID:                 1,
		RequiredSkills:     []string{"go"},
		InterestCategories: []string{"hiking"},
	}
	users := []models.User{
		{ID: 3, Interests: []string{"hiking"}},
		{ID: 1, Skills: []string{"go"}, Interests: []string{"hiking"}},
		{ID: 2, Skills: []string{"rust"}},
		{ID: 1, Skills: []string{"go"}},
		{ID: 4, Interests: []string{"hiking"}},
	}

	got := ids(e.RankUsersForEvent(context.Background(), event, users))
	if want := []uint{1, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRankUsersForEventRadius(t *testing.T) {
	e := NewEngine(zap.NewNop())
	event := models.Event{
		ID:           1,
		Latitude:     floatPtr(40.7128),
		Longitude:    floatPtr(-74.0060),
		RadiusMeters: intPtr(20000),
	}
	users := []models.User{
		{ID: 1, Latitude: floatPtr(40.6782), Longitude: floatPtr(-73.9442)},
		{ID: 2, Latitude: floatPtr(34.0522), Longitude: floatPtr(-118.2437)},
		{ID: 3},
	}
	got := ids(e.RankUsersForEvent(context.Background(), event, users))
	if want := []uint{1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRankUsersForUserExcludesSelf(t *testing.T) {
	e := NewEngine(zap.NewNop())
	me := models.User{ID: 1, Interests: []string{"a", "b"}}
	all := []models.User{
		me,
		{ID: 2, Interests: []string{"a"}},
		{ID: 3, Interests: []string{"a", "b"}},
		{ID: 4},
	}
	got := ids(e.RankUsersForUser(context.Background(), me, all))
	if want := []uint{3, 2, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRankEventsForUser(t *testing.T) {
	e := NewEngine(zap.NewNop())
	user := models.User{ID: 1, Interests: []string{"music"}, Skills: []string{"go"}}
	events := []models.Event{
		{ID: 1, Tags: []string{"music"}},
		{ID: 2, InterestCategories: []string{"music"}, RequiredSkills: []string{"go"}},
		{ID: 3, InterestCategories: []string{"sport"}},
	}
	got := e.RankEventsForUser(context.Background(), user, events)
	var gotIDs []uint
	for _, ev := range got {
		gotIDs = append(gotIDs, ev.ID)
	}
	if want := []uint{2, 1}; !reflect.DeepEqual(gotIDs, want) {
		t.Fatalf("got %v, want %v", gotIDs, want)
	}
}

func TestOracleReRankUsesThreshold(t *testing.T) {
	oracle := &fakeOracle{ranked: []RankedCandidate{
		{ID: 3, Score: 0.3},
		{ID: 2, Score: 0.9},
		{ID: 99, Score: 0.95},
		{ID: 4, Score: 0.6},
	}}
	e := NewEngine(zap.NewNop(), WithOracle(oracle))
	me := models.User{ID: 1}
	all := []models.User{{ID: 2}, {ID: 3}, {ID: 4}}

	got := ids(e.RankUsersForUser(context.Background(), me, all))
	if want := []uint{2, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestOracleFailureFallsBack(t *testing.T) {
	me := models.User{ID: 1, Interests: []string{"a"}}
	all := []models.User{{ID: 2}, {ID: 3, Interests: []string{"a"}}}
	want := []uint{3, 2}

	cases := map[string]*fakeOracle{
		"error":        {err: errors.New("quota exceeded")},
		"timeout":      {block: true},
		"below cutoff": {ranked: []RankedCandidate{{ID: 2, Score: 0.1}}},
	}
	for name, oracle := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(zap.NewNop(), WithOracle(oracle), WithTimeout(20*time.Millisecond))
			start := time.Now()
			got := ids(e.RankUsersForUser(context.Background(), me, all))
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v, want %v", got, want)
			}
			if time.Since(start) > time.Second {
				t.Fatal("oracle call was not bounded by timeout")
			}
			if n := oracle.calls.Load(); n != 1 {
				t.Fatalf("oracle calls = %d, want 1", n)
			}
		})
	}
}

// stubbornOracle не слушает ctx и отвечает только после release.
type stubbornOracle struct {
	release chan struct{}
}

func (o stubbornOracle) Rank(context.Context, RankRequest) ([]RankedCandidate, error) {
	<-o.release
	return []RankedCandidate{{ID: 2, Score: 1}}, nil
}

func (o stubbornOracle) SuggestTags(context.Context, TagRequest) ([]string, error) {
	<-o.release
	return []string{"late"}, nil
}

func (o stubbornOracle) SuggestMutualSlot(context.Context, []UserAvailability) (models.SlotSuggestion, error) {
	<-o.release
	return models.SlotSuggestion{Date: "2030-01-01", TimeSlot: "night"}, nil
}

func TestOracleIgnoringContextIsStillBounded(t *testing.T) {
	oracle := stubbornOracle{release: make(chan struct{})}
	t.Cleanup(func() { close(oracle.release) })

	e := NewEngine(zap.NewNop(), WithOracle(oracle), WithTimeout(20*time.Millisecond),
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }))
	ctx := context.Background()
	start := time.Now()

	me := models.User{ID: 1, Interests: []string{"a"}}
	all := []models.User{{ID: 2}, {ID: 3, Interests: []string{"a"}}}
	if got := ids(e.RankUsersForUser(ctx, me, all)); !reflect.DeepEqual(got, []uint{3, 2}) {
		t.Fatalf("rank fallback = %v", got)
	}
	if got := e.SuggestTags(ctx, TagRequest{Title: "x"}); got == nil || len(got) != 0 {
		t.Fatalf("tags = %#v, want empty", got)
	}
	slot := e.MutualTimeSlotAcrossUsers(ctx, []UserAvailability{{UserID: 1, Dates: []string{"2024-01-05"}, TimeSlots: []string{"morning"}}})
	if slot != (models.SlotSuggestion{Date: "2024-01-05", TimeSlot: "morning"}) {
		t.Fatalf("slot = %+v", slot)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("three oracle calls took %v", elapsed)
	}
}

func TestSuggestTags(t *testing.T) {
	ctx := context.Background()
	req := TagRequest{Title: "Jazz night", Type: models.EventSocial}

	if got := NewEngine(zap.NewNop()).SuggestTags(ctx, req); len(got) != 0 {
		t.Fatalf("no oracle: got %v", got)
	}

	failing := NewEngine(zap.NewNop(), WithOracle(&fakeOracle{err: errors.New("boom")}))
	if got := failing.SuggestTags(ctx, req); got == nil || len(got) != 0 {
		t.Fatalf("failing oracle: got %#v, want empty slice", got)
	}

	oracle := &fakeOracle{tags: []string{"Jazz", "jazz", " music ", "", "a", "b", "c", "d", "e", "f"}}
	got := NewEngine(zap.NewNop(), WithOracle(oracle)).SuggestTags(ctx, req)
	want := []string{"jazz", "music", "a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMutualTimeSlotFallback(t *testing.T) {
	now := time.Date(2024, 6, 15, 21, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input []UserAvailability
		want  models.SlotSuggestion
	}{
		{
			name: "no input",
			want: models.SlotSuggestion{Date: "2024-06-15", TimeSlot: "evening"},
		},
		{
			name: "most frequent pair",
			input: []UserAvailability{
				{UserID: 1, Dates: []string{"2024-07-01", "2024-07-02"}, TimeSlots: []string{"morning", "evening"}},
				{UserID: 2, Dates: []string{"2024-07-02"}, TimeSlots: []string{"evening"}},
			},
			want: models.SlotSuggestion{Date: "2024-07-02", TimeSlot: "evening"},
		},
		{
			name: "tie goes to first seen",
			input: []UserAvailability{
				{UserID: 1, Dates: []string{"2024-07-01"}, TimeSlots: []string{"night"}},
				{UserID: 2, Dates: []string{"2024-07-03"}, TimeSlots: []string{"morning"}},
			},
			want: models.SlotSuggestion{Date: "2024-07-01", TimeSlot: "night"},
		},
		{
			name: "dates without slots",
			input: []UserAvailability{
				{UserID: 1, Dates: []string{"2024-08-01"}},
			},
			want: models.SlotSuggestion{Date: "2024-08-01", TimeSlot: "evening"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MutualTimeSlotFallback(tt.input, now); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMutualTimeSlotAcrossUsersOracle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	input := []UserAvailability{{UserID: 1, Dates: []string{"2024-02-01"}, TimeSlots: []string{"morning"}}}

	good := &fakeOracle{slot: models.SlotSuggestion{Date: "2024-02-01", TimeSlot: "night"}}
	e := NewEngine(zap.NewNop(), WithOracle(good), WithClock(func() time.Time { return now }))
	if got := e.MutualTimeSlotAcrossUsers(ctx, input); got != good.slot {
		t.Fatalf("got %+v, want oracle answer", got)
	}

	malformed := &fakeOracle{slot: models.SlotSuggestion{Date: "tomorrow", TimeSlot: "afternoon"}}
	e = NewEngine(zap.NewNop(), WithOracle(malformed))
	want := models.SlotSuggestion{Date: "2024-02-01", TimeSlot: "morning"}
	if got := e.MutualTimeSlotAcrossUsers(ctx, input); got != want {
		t.Fatalf("got %+v, want fallback %+v", got, want)
	}

	empty := NewEngine(zap.NewNop(), WithOracle(good), WithClock(func() time.Time { return now }))
	if got := empty.MutualTimeSlotAcrossUsers(ctx, nil); got.Date != "2024-01-01" || got.TimeSlot != "evening" {
		t.Fatalf("empty input: got %+v", got)
	}
}

func TestFromRecords(t *testing.T) {
	records := []models.Availability{{
		UserID:    5,
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Timeslots: []models.Timeslot{models.SlotMorning, models.SlotNight},
	}}
	got := FromRecords(records)
	want := []UserAvailability{{UserID: 5, Dates: []string{"2024-03-01"}, TimeSlots: []string{"morning", "night"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
