// Package oracle - внешний ранжировщик на базе чат-модели OpenAI.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

const DefaultModel = openai.GPT4o

type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAI struct {
	client completer
	model  string
}

var _ matching.Oracle = (*OpenAI)(nil)

func NewOpenAI(apiKey, model string) *OpenAI {
	return newOpenAI(openai.NewClient(apiKey), model)
}

func newOpenAI(client completer, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", services.ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", services.ErrOracleUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

type userView struct {
	ID         uint     `json:"id"`
	Interests  []string `json:"interests"`
	Skills     []string `json:"skills"`
	CareerPath *string  `json:"careerPath,omitempty"`
	Profession string   `json:"profession,omitempty"`
}

type eventView struct {
	ID                 uint             `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Tags               []string         `json:"tags"`
	CareerFocus        *string          `json:"careerFocus,omitempty"`
	InterestCategories []string         `json:"interestCategories"`
	RequiredSkills     []string         `json:"requiredSkills"`
	Type               models.EventType `json:"type"`
	Category           string           `json:"category,omitempty"`
}

func viewUser(u models.User) userView {
	return userView{ID: u.ID, Interests: orEmpty(u.Interests), Skills: orEmpty(u.Skills), CareerPath: u.CareerPath, Profession: u.Profession}
}

func viewEvent(e models.Event) eventView {
	return eventView{
		ID:                 e.ID,
		Title:              e.Title,
		Description:        e.Description,
		Tags:               orEmpty(e.Tags),
		CareerFocus:        e.CareerFocus,
		InterestCategories: orEmpty(e.InterestCategories),
		RequiredSkills:     orEmpty(e.RequiredSkills),
		Type:               e.Type,
		Category:           e.Category,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func career(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "Not specified"
	}
	return *p
}

// Rank строит промпт по типу запроса и разбирает ответ модели.
func (o *OpenAI) Rank(ctx context.Context, req matching.RankRequest) ([]matching.RankedCandidate, error) {
	system, prompt, err := rankPrompt(req)
	if err != nil {
		return nil, err
	}
	content, err := o.complete(ctx, system, prompt, 0.3)
	if err != nil {
		return nil, err
	}
	return parseRanking(req.Kind, content)
}

func rankPrompt(req matching.RankRequest) (string, string, error) {
	switch req.Kind {
	case matching.RankUsersForUser:
		if req.User == nil {
			return "", "", fmt.Errorf("%w: missing user", services.ErrOracleUnavailable)
		}
		users := make([]userView, 0, len(req.Users))
		for _, u := range req.Users {
			users = append(users, viewUser(u))
		}
		return "You are a matching expert helping to connect users based on compatibility. Return JSON only.",
			fmt.Sprintf("Given a user with interests: %s, skills: %s, and career path: %s, "+
				"rank the following users by compatibility score from 0 to 1.0. "+
				`Respond with {"matches": [{"userId": number, "compatibilityScore": number}]} sorted by compatibilityScore descending. `+
				"Users: %s",
				mustJSON(orEmpty(req.User.Interests)), mustJSON(orEmpty(req.User.Skills)), career(req.User.CareerPath), mustJSON(users)), nil

	case matching.RankUsersForEvent:
		if req.Event == nil {
			return "", "", fmt.Errorf("%w: missing event", services.ErrOracleUnavailable)
		}
		users := make([]userView, 0, len(req.Users))
		for _, u := range req.Users {
			users = append(users, viewUser(u))
		}
		return "You are a matching expert helping to find attendees for an event. Return JSON only.",
			fmt.Sprintf("Given the event %s, rank the following users by how well they fit it, with a score from 0 to 1.0. "+
				`Respond with {"matches": [{"userId": number, "compatibilityScore": number}]} sorted by compatibilityScore descending. `+
				"Users: %s",
				mustJSON(viewEvent(*req.Event)), mustJSON(users)), nil

	case matching.RankEventsForUser:
		if req.User == nil {
			return "", "", fmt.Errorf("%w: missing user", services.ErrOracleUnavailable)
		}
		events := make([]eventView, 0, len(req.Events))
		for _, e := range req.Events {
			events = append(events, viewEvent(e))
		}
		return "You are an event recommendation system. Return JSON only.",
			fmt.Sprintf("Given a user with interests: %s, skills: %s, and career path: %s, "+
				"rank the following events by relevance score from 0 to 1.0. "+
				`Respond with {"recommendations": [{"eventId": number, "relevanceScore": number, "reason": string}]} sorted by relevanceScore descending. `+
				"Events: %s",
				mustJSON(orEmpty(req.User.Interests)), mustJSON(orEmpty(req.User.Skills)), career(req.User.CareerPath), mustJSON(events)), nil
	}
	return "", "", fmt.Errorf("%w: unknown rank kind %q", services.ErrOracleUnavailable, req.Kind)
}

func (o *OpenAI) SuggestTags(ctx context.Context, req matching.TagRequest) ([]string, error) {
	prompt := fmt.Sprintf("Given the following event, generate relevant tags that would help match it with interested users. "+
		`Respond with {"tags": [string]} containing 3-7 short, concise tags.`+
		"\nTitle: %s\nDescription: %s\nType: %s", req.Title, req.Description, req.Type)
	content, err := o.complete(ctx, "You are a tagging system for events. Return JSON only.", prompt, 0.3)
	if err != nil {
		return nil, err
	}
	return parseTags(content)
}

func (o *OpenAI) SuggestMutualSlot(ctx context.Context, availabilities []matching.UserAvailability) (models.SlotSuggestion, error) {
	slots := make([]string, 0, len(models.Timeslots()))
	for _, s := range models.Timeslots() {
		slots = append(slots, string(s))
	}
	prompt := fmt.Sprintf("Given the following user availabilities, find the best date and time slot that would work for most or all users. "+
		"The possible time slots are: %s. "+
		`Respond with {"date": "YYYY-MM-DD", "timeSlot": string, "coverage": number} where coverage is the percentage of users it works for. `+
		"User availabilities: %s", strings.Join(slots, ", "), mustJSON(availabilities))
	content, err := o.complete(ctx, "You are a scheduling assistant helping to find the best mutual time for a group. Return JSON only.", prompt, 0.2)
	if err != nil {
		return models.SlotSuggestion{}, err
	}
	return parseSlot(content)
}
