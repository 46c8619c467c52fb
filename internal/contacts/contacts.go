// Package contacts matches restaurants from the weekly result table to the
// contact directory and appends email addresses for matches above a
// confidence threshold. Matching is fuzzy name similarity plus a
// reasoning-style boost; an optional semantic verifier can confirm or veto
// top candidates.
package contacts

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"activation-analytics/internal/models"
)

// DefaultMinConfidence is the cutoff below which a candidate contact is not
// considered a match at all.
const DefaultMinConfidence = 0.70

// maxVerified caps how many top candidates are sent to the verifier.
const maxVerified = 10

var normalizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s+(llc|inc|corp|corporation|ltd|limited|co\.?)\b`),
	regexp.MustCompile(`\s+(restaurant|restaurants|rest\.?)\b`),
	regexp.MustCompile(`\s+(group|hospitality|concepts?)\b`),
	regexp.MustCompile(`\bthe\s+`),
	regexp.MustCompile(`\s+&\s+`),
	regexp.MustCompile(`[^\w\s]`),
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a restaurant name and strips business suffixes,
// articles, and punctuation so that minor naming differences do not defeat
// matching.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	for _, re := range normalizePatterns {
		name = re.ReplaceAllString(name, " ")
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(name, " "))
}

// SimilarityScore is the base fuzzy similarity of two restaurant names
// after normalization, in [0, 1].
func SimilarityScore(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	return ratio(na, nb)
}

// ratio is a sequence-similarity measure: twice the length of the longest
// common subsequence over the combined length.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 && m == 0 {
		return 1
	}
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[m]) / float64(n+m)
}

var abbrevPairs = [][2]string{
	{"mgmt", "management"},
	{"hosp", "hospitality"},
	{"rest", "restaurant"},
	{"grp", "group"},
}

// reasoningBoost rewards semantic similarity the raw ratio misses:
// substring containment, word overlap, and common abbreviations. The boost
// is capped at 0.25.
func reasoningBoost(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}

	var boost float64
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		boost += 0.15
	}

	wordsA := strings.Fields(na)
	wordsB := strings.Fields(nb)
	if len(wordsA) > 0 && len(wordsB) > 0 {
		setA := make(map[string]bool, len(wordsA))
		for _, w := range wordsA {
			setA[w] = true
		}
		setB := make(map[string]bool, len(wordsB))
		for _, w := range wordsB {
			setB[w] = true
		}
		intersection := 0
		union := len(setB)
		for w := range setA {
			if setB[w] {
				intersection++
			} else {
				union++
			}
		}
		overlap := float64(intersection) / float64(union)
		if overlap >= 0.7 {
			boost += 0.10
		} else if overlap >= 0.5 {
			boost += 0.05
		}
	}

	for _, pair := range abbrevPairs {
		abbrev, full := pair[0], pair[1]
		if (strings.Contains(na, abbrev) && strings.Contains(nb, full)) ||
			(strings.Contains(nb, abbrev) && strings.Contains(na, full)) {
			boost += 0.03
		}
	}

	if boost > 0.25 {
		boost = 0.25
	}
	return boost
}

// Match is one contact candidate that cleared the confidence threshold.
type Match struct {
	RestaurantName string
	Email          string
	Confidence     float64
	Verified       bool
	Reason         string
}

// Verifier double-checks whether two restaurant names refer to the same
// place. It can adjust the confidence or veto the match outright.
type Verifier interface {
	Verify(ctx context.Context, restaurantName, contactName string) (ok bool, confidenceAdj float64, reason string, err error)
}

// Matcher matches restaurant names against a loaded contact directory.
type Matcher struct {
	contacts      []models.Contact
	minConfidence float64
	verifier      Verifier
}

// NewMatcher creates a matcher over the contact directory. verifier may be
// nil, in which case fuzzy confidence stands on its own.
func NewMatcher(contacts []models.Contact, minConfidence float64, verifier Verifier) *Matcher {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Matcher{
		contacts:      contacts,
		minConfidence: minConfidence,
		verifier:      verifier,
	}
}

// Match returns every contact whose combined fuzzy score clears the
// threshold, best first. With a verifier configured, only the top
// candidates it confirms survive.
func (m *Matcher) Match(ctx context.Context, restaurantName string) []Match {
	var candidates []Match
	for _, c := range m.contacts {
		if c.RestaurantName == "" {
			continue
		}
		score := SimilarityScore(restaurantName, c.RestaurantName) + reasoningBoost(restaurantName, c.RestaurantName)
		if score > 1 {
			score = 1
		}
		if score < m.minConfidence {
			continue
		}
		candidates = append(candidates, Match{
			RestaurantName: c.RestaurantName,
			Email:          c.Email,
			Confidence:     score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if m.verifier == nil {
		return candidates
	}

	if len(candidates) > maxVerified {
		candidates = candidates[:maxVerified]
	}
	var verified []Match
	for _, cand := range candidates {
		ok, adj, reason, err := m.verifier.Verify(ctx, restaurantName, cand.RestaurantName)
		if err != nil {
			// Verification failure falls back to the fuzzy score.
			verified = append(verified, cand)
			continue
		}
		if !ok {
			continue
		}
		cand.Confidence += adj
		if cand.Confidence > 1 {
			cand.Confidence = 1
		}
		cand.Verified = true
		cand.Reason = reason
		verified = append(verified, cand)
	}
	return verified
}

// EnrichWeeklyRows appends matched emails, the match confidence, and a short
// note to each weekly row in place.
func (m *Matcher) EnrichWeeklyRows(ctx context.Context, rows []models.WeeklyRow) {
	for i := range rows {
		row := &rows[i]
		combined := strings.TrimSpace(row.RestaurantName + " " + row.LocationName)
		if combined == "" {
			row.EmailMatchConfidence = "N/A"
			row.EmailMatchNotes = "Empty restaurant name"
			continue
		}

		matches := m.Match(ctx, combined)
		if len(matches) == 0 {
			row.EmailMatchConfidence = "No match"
			row.EmailMatchNotes = "No contacts matched above confidence threshold"
			continue
		}

		var emails []string
		perfect := 0
		best := matches[0]
		for _, match := range matches {
			if match.Email != "" {
				emails = append(emails, match.Email)
			}
			if match.Confidence >= 0.999 {
				perfect++
			}
			if match.Confidence > best.Confidence {
				best = match
			}
		}
		row.Emails = strings.Join(emails, ", ")
		if perfect > 0 {
			row.EmailMatchConfidence = "100%"
			row.EmailMatchNotes = fmt.Sprintf("%d email(s) from %d match(es) (including %d perfect)",
				len(emails), len(matches), perfect)
		} else {
			row.EmailMatchConfidence = fmt.Sprintf("%.1f%%", best.Confidence*100)
			row.EmailMatchNotes = fmt.Sprintf("%d email(s) from %d match(es) above %.0f%%",
				len(emails), len(matches), m.minConfidence*100)
		}
	}
}
