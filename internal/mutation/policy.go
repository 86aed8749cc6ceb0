package mutation

import (
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// MandatoryPolicy decides which activities the conversation may not replace.
type MandatoryPolicy interface {
	IsMandatory(a domain.Activity) bool
}

// DefaultKeywords flag flight legs, lodging check-in/out and critical transfers.
var DefaultKeywords = []string{
	"check-in", "check in", "checkin",
	"check-out", "check out", "checkout",
	"transfer", "airport", "boarding", "flight",
}

// KeywordPolicy treats flight activities, and any activity whose title or
// description contains one of Keywords (case-insensitive), as mandatory.
type KeywordPolicy struct {
	Keywords []string
}

// NewKeywordPolicy returns a KeywordPolicy using DefaultKeywords.
func NewKeywordPolicy() KeywordPolicy {
	return KeywordPolicy{Keywords: DefaultKeywords}
}

func (p KeywordPolicy) IsMandatory(a domain.Activity) bool {
	if domain.NormalizeCategory(a.Category) == domain.CategoryFlight {
		return true
	}
	title := strings.ToLower(a.Title)
	desc := strings.ToLower(a.Description)
	for _, k := range p.Keywords {
		if strings.Contains(title, k) || strings.Contains(desc, k) {
			return true
		}
	}
	return false
}
