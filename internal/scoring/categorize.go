package scoring

import (
	"strings"

	"github.com/ldi/pwoa/pkg/models"
)

// categoryKeywords is ordered: the first category whose keyword set
// matches the description wins.
var categoryKeywords = []struct {
	category models.TaskCategory
	keywords []string
}{
	{models.TaskCategoryWork, []string{"report", "client", "meeting", "presentation", "project", "work", "office", "email"}},
	{models.TaskCategoryPersonal, []string{"groceries", "mom", "dad", "family", "home", "house", "personal"}},
	{models.TaskCategoryLearning, []string{"study", "learn", "course", "tutorial", "read", "book", "research"}},
	{models.TaskCategoryFitness, []string{"gym", "workout", "exercise", "run", "fitness", "health"}},
	{models.TaskCategoryFinance, []string{"bill", "payment", "bank", "money", "budget", "finance", "tax"}},
}

// Categorize is the rule-based fallback categorizer used when neither
// the caller nor the augmenter set a category.
func Categorize(description string) models.TaskCategory {
	desc := strings.ToLower(description)
	for _, set := range categoryKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(desc, kw) {
				return set.category
			}
		}
	}
	return models.TaskCategoryMisc
}
