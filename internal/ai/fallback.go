package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicmitra/backend/internal/models"
)

const FallbackConfidence = 60

type CategoryDefaults struct {
	Department string
	Priority   models.Priority
}

// defaults is total over models.Categories.
var defaults = map[models.Category]CategoryDefaults{
	models.CategoryRoads:        {"Public Works", models.PriorityMedium},
	models.CategoryWater:        {"Water Supply", models.PriorityHigh},
	models.CategoryElectricity:  {"Electricity", models.PriorityHigh},
	models.CategorySanitation:   {"Sanitation", models.PriorityMedium},
	models.CategoryDrainage:     {"Drainage", models.PriorityMedium},
	models.CategoryStreetLights: {"Electricity", models.PriorityLow},
	models.CategoryParks:        {"Parks and Gardens", models.PriorityLow},
	models.CategoryPublicSafety: {"Public Safety", models.PriorityHigh},
	models.CategoryOther:        {"", models.PriorityLow},
}

// Checked in order; first hit wins.
var keywords = []struct {
	Category models.Category
	Words    []string
}{
	{models.CategoryStreetLights, []string{"streetlight", "street light", "lamp post", "lamppost"}},
	{models.CategoryRoads, []string{"pothole", "road", "asphalt", "pavement", "footpath", "speed breaker"}},
	{models.CategoryWater, []string{"water supply", "no water", "pipeline", "tap", "water leak", "leaking", "leakage", "contaminated water"}},
	{models.CategoryElectricity, []string{"power cut", "electricity", "transformer", "outage", "voltage", "wire"}},
	{models.CategorySanitation, []string{"garbage", "trash", "waste", "litter", "toilet", "dump"}},
	{models.CategoryDrainage, []string{"drain", "drainage", "sewer", "sewage", "waterlogging", "manhole", "flood", "flooded", "flooding"}},
	{models.CategoryParks, []string{"park", "playground", "garden", "tree"}},
	{models.CategoryPublicSafety, []string{"unsafe", "crime", "stray", "harassment", "collapsed", "fire"}},
}

// urgentWords raise any category to High priority.
var urgentWords = []string{"accident", "electrocution", "injured", "collapse", "collapsed", "fire", "emergency", "danger", "dangerous"}

// KeywordClassifier is the deterministic classifier used when no AI service is
// configured or the AI call fails.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, in Input) (models.Classification, error) {
	return Fallback(in), nil
}

func Fallback(in Input) models.Classification {
	text := strings.ToLower(in.Title + " " + in.Description)

	category := models.Category(strings.TrimSpace(in.UserCategory))
	reason := "user selected category"
	if !category.Valid() {
		category = inferCategory(text)
		reason = "keyword match"
		if category == models.CategoryOther {
			reason = "no keyword match"
		}
	}

	d := DefaultsFor(category)
	priority := d.Priority
	if containsAny(text, urgentWords) {
		priority = models.PriorityHigh
	}

	res := models.Classification{
		Category:     category,
		Priority:     priority,
		Confidence:   FallbackConfidence,
		Reasoning:    fmt.Sprintf("rule-based classification (%s)", reason),
		AIClassified: false,
	}
	if d.Department != "" {
		dept := d.Department
		res.Department = &dept
	}
	return res
}

// DefaultsFor returns the department and priority for a category; unknown categories get
// the Other defaults.
func DefaultsFor(c models.Category) CategoryDefaults {
	if d, ok := defaults[c]; ok {
		return d
	}
	return defaults[models.CategoryOther]
}

func inferCategory(text string) models.Category {
	for _, k := range keywords {
		if containsAny(text, k.Words) {
			return k.Category
		}
	}
	return models.CategoryOther
}

// containsAny matches whole words, allowing a plural "s" or "es", so "tree"
// does not hit "street" and "park" does not hit "parking".
func containsAny(text string, words []string) bool {
	for _, w := range words {
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], w)
			if i < 0 {
				break
			}
			at := from + i
			if (at == 0 || !isLetter(text[at-1])) && wordEnds(text[at+len(w):]) {
				return true
			}
			from = at + 1
		}
	}
	return false
}

func wordEnds(rest string) bool {
	for _, suffix := range []string{"es", "s", ""} {
		if strings.HasPrefix(rest, suffix) {
			tail := rest[len(suffix):]
			if tail == "" || !isLetter(tail[0]) {
				return true
			}
		}
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
