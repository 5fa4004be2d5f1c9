package matching

import (
	"math"
	"strings"

	"github.com/thereayou/link/internal/models"
)

const (
	interestWeight = 50.0
	skillWeight    = 30.0
	careerBonus    = 20.0
)

// tagSet приводит строки к нижнему регистру и убирает пустые и повторы.
func tagSet(values ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range values {
		for _, v := range list {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			set[v] = struct{}{}
		}
	}
	return set
}

// overlap = |A∩B| / max(|A|,|B|), 0 при пустом знаменателе.
func overlap(a, b map[string]struct{}) float64 {
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		return 0
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return float64(n) / float64(denom)
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func sameCareer(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	x := strings.ToLower(strings.TrimSpace(*a))
	y := strings.ToLower(strings.TrimSpace(*b))
	return x != "" && x == y
}

func clampScore(v float64) int {
	score := int(math.Round(v))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// CompatibilityScore - детерминированная оценка совместимости двух пользователей в [0,100].
func CompatibilityScore(a, b models.User) int {
	total := interestWeight*overlap(tagSet(a.Interests), tagSet(b.Interests)) +
		skillWeight*overlap(tagSet(a.Skills), tagSet(b.Skills))
	if sameCareer(a.CareerPath, b.CareerPath) {
		total += careerBonus
	}
	return clampScore(total)
}

// EventScore оценивает событие для пользователя по тем же весам.
// Интересы сравниваются с категориями и тегами события, навыки с требуемыми навыками.
func EventScore(user models.User, event models.Event) int {
	total := interestWeight*overlap(tagSet(user.Interests), tagSet(event.InterestCategories, event.Tags)) +
		skillWeight*overlap(tagSet(user.Skills), tagSet(event.RequiredSkills))
	if sameCareer(user.CareerPath, event.CareerFocus) {
		total += careerBonus
	}
	return clampScore(total)
}

// qualifies: пользователь пересекается с требуемыми навыками или категориями интересов.
// Пустые списки события не фильтруют.
func qualifies(user models.User, event models.Event) bool {
	skills := tagSet(event.RequiredSkills)
	interests := tagSet(event.InterestCategories)
	if len(skills) == 0 && len(interests) == 0 {
		return true
	}
	return intersects(tagSet(user.Skills), skills) || intersects(tagSet(user.Interests), interests)
}
