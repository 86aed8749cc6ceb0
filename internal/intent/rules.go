package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Rule is one entry of the keyword table. Match reports whether the rule
// applies to in and, if so, the resulting intent.
type Rule struct {
	Name  string
	Match func(in Input) (Intent, bool)
}

// DefaultRules is the keyword table in priority order. The first matching
// rule wins; the generator fallback runs only when none match.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "more_alternatives", Match: matchMoreAlternatives},
		{Name: "extend_trip", Match: matchExtendTrip},
		{Name: "bulk_replace", Match: matchBulkReplace},
	}
}

var (
	moreAlternativesRe = regexp.MustCompile(`\b(more|other|others|different|another|else|alternatives?|options?)\b`)

	numberAlt = `\d{1,2}|` + strings.Join(numberWords, "|")

	extendRe    = regexp.MustCompile(`\b(?:extend|lengthen|prolong)\s+(?:(?:the|our|my|this|it|us)\s+)?(?:trip|stay|holiday|vacation|visit|itinerary|it|us)\b`)
	extendVerb  = regexp.MustCompile(`\b(?:extend|lengthen|prolong)\b`)
	addDaysRe   = regexp.MustCompile(`\b(add|extra|another|more|additional)\b(?:\s+(?:a|an|another|more|extra|additional|few|couple|of|` + numberAlt + `)){0,3}\s+(?:days?|nights?)\b`)
	dayCountRe  = regexp.MustCompile(`\b(couple of|` + numberAlt + `)\s+(?:(?:more|extra|additional)\s+)?(?:days?|nights?)\b`)
	bulkPhrases = regexp.MustCompile(`\b(all|every|each)\s+(?:of\s+)?(?:the\s+|my\s+)?(meals?|activities|activity|restaurants?|dinners?|lunches?|breakfasts?|attractions?|sights?|things)\b`)
)

// dayNounFollowers are words that turn "day" into part of another noun, as in
// "day trip" or "day pass".
var dayNounFollowers = map[string]bool{
	"trip": true, "trips": true, "pass": true, "passes": true,
	"tour": true, "tours": true, "excursion": true, "excursions": true,
}

// numberWords runs from fourteen down to one so longer words match first.
var numberWords = []string{
	"fourteen", "thirteen", "twelve", "eleven", "ten", "nine", "eight",
	"seven", "six", "five", "four", "three", "two", "one",
}

func wordValue(w string) int {
	for i, nw := range numberWords {
		if nw == w {
			return 14 - i
		}
	}
	return 0
}

func matchMoreAlternatives(in Input) (Intent, bool) {
	if in.Replacing == nil || !moreAlternativesRe.MatchString(normalize(in.Utterance)) {
		return Intent{}, false
	}
	return Intent{Kind: KindMoreAlternatives, Slot: *in.Replacing}, true
}

func matchExtendTrip(in Input) (Intent, bool) {
	text := normalize(in.Utterance)
	extend := extendRe.MatchString(text) || (extendVerb.MatchString(text) && dayCountRe.MatchString(text))
	if !extend && !addsDays(text) {
		return Intent{}, false
	}
	return Intent{Kind: KindMutation, Mutation: domain.ExtendTrip{Days: ParseDayCount(text)}}, true
}

func matchBulkReplace(in Input) (Intent, bool) {
	m := bulkPhrases.FindStringSubmatch(normalize(in.Utterance))
	if m == nil {
		return Intent{}, false
	}
	reply := fmt.Sprintf("I can't swap %s %s in one go. Tell me which days to replan, for example "+
		"\"replan days 2 to 3\", or pick a single activity and I'll suggest alternatives.", m[1], m[2])
	return Intent{Kind: KindBulkReplaceSummaryOnly, Reply: reply}, true
}

// addsDays reports whether text asks for extra days. A match directly followed
// by a noun such as "trip" ("add a day trip") does not count.
func addsDays(text string) bool {
	for _, loc := range addDaysRe.FindAllStringIndex(text, -1) {
		next := strings.Fields(text[loc[1]:])
		if len(next) > 0 && dayNounFollowers[strings.Trim(next[0], ".,!?;:")] {
			continue
		}
		return true
	}
	return false
}

// ParseDayCount returns the number of days mentioned in text, accepting digits
// and the words one to fourteen. It returns 1 when no count is present.
func ParseDayCount(text string) int {
	m := dayCountRe.FindStringSubmatch(normalize(text))
	if m == nil {
		return 1
	}
	switch word := m[1]; {
	case strings.Contains(word, "couple"):
		return 2
	case wordValue(word) > 0:
		return wordValue(word)
	default:
		n, err := strconv.Atoi(word)
		if err != nil || n < 1 {
			return 1
		}
		return n
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
