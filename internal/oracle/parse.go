package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

func malformed(err error) error {
	return fmt.Errorf("%w: malformed response: %v", services.ErrOracleUnavailable, err)
}

func parseRanking(kind matching.RankKind, content string) ([]matching.RankedCandidate, error) {
	if kind == matching.RankEventsForUser {
		var resp struct {
			Recommendations []struct {
				EventID        uint    `json:"eventId"`
				RelevanceScore float64 `json:"relevanceScore"`
			} `json:"recommendations"`
		}
		if err := json.Unmarshal([]byte(content), &resp); err != nil {
			return nil, malformed(err)
		}
		if resp.Recommendations == nil {
			return nil, malformed(fmt.Errorf("no recommendations field"))
		}
		out := make([]matching.RankedCandidate, 0, len(resp.Recommendations))
		for _, r := range resp.Recommendations {
			out = append(out, matching.RankedCandidate{ID: r.EventID, Score: r.RelevanceScore})
		}
		return out, nil
	}

	var resp struct {
		Matches []struct {
			UserID             uint    `json:"userId"`
			CompatibilityScore float64 `json:"compatibilityScore"`
		} `json:"matches"`
	}
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, malformed(err)
	}
	if resp.Matches == nil {
		return nil, malformed(fmt.Errorf("no matches field"))
	}
	out := make([]matching.RankedCandidate, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, matching.RankedCandidate{ID: m.UserID, Score: m.CompatibilityScore})
	}
	return out, nil
}

func parseTags(content string) ([]string, error) {
	var resp struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, malformed(err)
	}
	if resp.Tags == nil {
		return []string{}, nil
	}
	return resp.Tags, nil
}

func parseSlot(content string) (models.SlotSuggestion, error) {
	var slot models.SlotSuggestion
	if err := json.Unmarshal([]byte(content), &slot); err != nil {
		return models.SlotSuggestion{}, malformed(err)
	}
	if slot.Date == "" || slot.TimeSlot == "" {
		return models.SlotSuggestion{}, malformed(fmt.Errorf("missing date or timeSlot"))
	}
	return slot, nil
}
