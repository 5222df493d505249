package usecase

import "strings"

// breakingKeywords mark a headline as market-moving. An article must hit at
// least one to be considered at all.
var breakingKeywords = []string{
	"fda approval", "fda clears", "merger", "acquisition", "acquires",
	"buyout", "takeover", "offering", "partnership", "contract award",
	"clinical trial", "phase 3", "phase 2", "breakthrough", "patent",
	"earnings beat", "guidance raise", "upgrade", "short squeeze",
	"halted", "resumes trading", "bankruptcy", "delisting",
}

// excludeKeywords drop an article outright regardless of other matches.
var excludeKeywords = []string{
	"class action", "investor alert", "shareholder alert",
	"deadline reminder", "law firm", "investigation on behalf",
	"webinar", "conference call reminder",
}

// MatchesNewsFilter reports whether a headline passes the keyword gate:
// no exclude keyword present and at least one breaking keyword present.
func MatchesNewsFilter(headline string) bool {
	h := strings.ToLower(headline)
	for _, kw := range excludeKeywords {
		if strings.Contains(h, kw) {
			return false
		}
	}
	for _, kw := range breakingKeywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}
