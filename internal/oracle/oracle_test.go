package oracle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/thereayou/link/internal/cache"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	content string
	err     error
	reqs    []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func TestParseRanking(t *testing.T) {
	got, err := parseRanking(matching.RankUsersForUser, `{"matches":[{"userId":2,"compatibilityScore":0.8},{"userId":5,"compatibilityScore":0.1}]}`)
	if err != nil {
		t.Fatal(err)
	}
	want := []matching.RankedCandidate{{ID: 2, Score: 0.8}, {ID: 5, Score: 0.1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, err = parseRanking(matching.RankEventsForUser, `{"recommendations":[{"eventId":7,"relevanceScore":0.9,"reason":"fit"}]}`)
	if err != nil {
		t.Fatal(err)
	}
	if want := []matching.RankedCandidate{{ID: 7, Score: 0.9}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for _, bad := range []string{"not json", `{"other":[]}`} {
		if _, err := parseRanking(matching.RankUsersForEvent, bad); !errors.Is(err, services.ErrOracleUnavailable) {
			t.Errorf("parseRanking(%q) error = %v, want ErrOracleUnavailable", bad, err)
		}
	}
}

func TestParseSlotAndTags(t *testing.T) {
	slot, err := parseSlot(`{"date":"2024-05-01","timeSlot":"evening","coverage":75}`)
	if err != nil || slot != (models.SlotSuggestion{Date: "2024-05-01", TimeSlot: "evening"}) {
		t.Fatalf("parseSlot = %+v, %v", slot, err)
	}
	if _, err := parseSlot(`{"date":"2024-05-01"}`); err == nil {
		t.Fatal("expected error for missing timeSlot")
	}

	tags, err := parseTags(`{}`)
	if err != nil || tags == nil || len(tags) != 0 {
		t.Fatalf("parseTags({}) = %#v, %v", tags, err)
	}
}

func TestOpenAIRequestShape(t *testing.T) {
	fc := &fakeCompleter{content: `{"tags":["jazz","live music"]}`}
	o := newOpenAI(fc, "")

	tags, err := o.SuggestTags(context.Background(), matching.TagRequest{Title: "Jazz night", Description: "Live band", Type: models.EventSocial})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tags, []string{"jazz", "live music"}) {
		t.Fatalf("tags = %v", tags)
	}

	req := fc.reqs[0]
	if req.Model != DefaultModel {
		t.Errorf("model = %q, want %q", req.Model, DefaultModel)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("expected JSON object response format")
	}
	if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "Jazz night") {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}

func TestOpenAIErrorWrapped(t *testing.T) {
	o := newOpenAI(&fakeCompleter{err: errors.New("429 quota")}, "gpt-4o-mini")
	_, err := o.Rank(context.Background(), matching.RankRequest{Kind: matching.RankUsersForUser, User: &models.User{ID: 1}})
	if !errors.Is(err, services.ErrOracleUnavailable) {
		t.Fatalf("error = %v, want ErrOracleUnavailable", err)
	}

	_, err = o.Rank(context.Background(), matching.RankRequest{Kind: matching.RankEventsForUser})
	if !errors.Is(err, services.ErrOracleUnavailable) {
		t.Fatalf("missing user: error = %v", err)
	}
}

func TestMutualSlotPromptListsTimeslots(t *testing.T) {
	fc := &fakeCompleter{content: `{"date":"2024-05-01","timeSlot":"night"}`}
	o := newOpenAI(fc, "")
	if _, err := o.SuggestMutualSlot(context.Background(), []matching.UserAvailability{{UserID: 1}}); err != nil {
		t.Fatal(err)
	}
	prompt := fc.reqs[0].Messages[1].Content
	for _, s := range models.Timeslots() {
		if !strings.Contains(prompt, string(s)) {
			t.Errorf("prompt does not mention %q", s)
		}
	}
	if fc.reqs[0].Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", fc.reqs[0].Temperature)
	}
}

func TestCachedTags(t *testing.T) {
	ctx := context.Background()
	fc := &fakeCompleter{content: `{"tags":["hiking"]}`}
	c := NewCached(newOpenAI(fc, ""), cache.New(ctx, "", zap.NewNop()), time.Minute, zap.NewNop())
	req := matching.TagRequest{Title: "Trail walk", Type: models.EventSocial}

	for i := 0; i < 3; i++ {
		tags, err := c.SuggestTags(ctx, req)
		if err != nil || !reflect.DeepEqual(tags, []string{"hiking"}) {
			t.Fatalf("call %d: %v, %v", i, tags, err)
		}
	}
	if len(fc.reqs) != 1 {
		t.Fatalf("completions = %d, want 1", len(fc.reqs))
	}

	other := matching.TagRequest{Title: "Trail walk", Type: models.EventNetworking}
	if _, err := c.SuggestTags(ctx, other); err != nil {
		t.Fatal(err)
	}
	if len(fc.reqs) != 2 {
		t.Fatalf("different request must miss the cache")
	}
}
