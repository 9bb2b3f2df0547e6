// Package matcher resolves a free-text customer or product reference against
// candidates fetched from the ERP.
package matcher

import (
	"errors"
	"strings"
	"unicode"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultAmbiguousLimit caps the candidates returned for a disambiguation prompt
const DefaultAmbiguousLimit = 5

// ErrMissingInput is returned when the query has no name to match on
var ErrMissingInput = errors.New("missing search name")

// Kind classifies a match
type Kind int

const (
	NotFound Kind = iota
	Unique
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Query is what the user gave us to find a record with
type Query struct {
	Name  string
	Phone string
	Email string
}

// Result is the outcome of a match
type Result struct {
	Kind       Kind
	ID         int64
	Candidates []domain.Candidate
	// Total is the number of matching candidates before truncation
	Total int
}

// CoreDigits reduces a phone number to digits with the national prefix removed.
// "0799 368 057" and "+84 799 368 057" both become "799368057".
func CoreDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return digits[1:]
	case len(digits) == 11 && strings.HasPrefix(digits, "84"):
		return digits[2:]
	}
	return digits
}

// PhonePatterns returns the substrings a stored phone may contain to match.
// The order is: core digits, core grouped by three, raw input.
func PhonePatterns(phone string) []string {
	phone = strings.TrimSpace(phone)
	core := CoreDigits(phone)
	if core == "" {
		return nil
	}

	patterns := []string{core}
	if len(core) >= 9 {
		groups := make([]string, 0, len(core)/3+1)
		for i := 0; i < len(core); i += 3 {
			end := min(i+3, len(core))
			groups = append(groups, core[i:end])
		}
		patterns = append(patterns, strings.Join(groups, " "))
	}
	if phone != core {
		patterns = append(patterns, phone)
	}
	return patterns
}

// Match classifies candidates against the query. Name and display name are
// OR-ed, phone patterns are OR-ed, and the three groups are AND-ed.
func Match(query Query, candidates []domain.Candidate, limit int) (Result, error) {
	name := strings.TrimSpace(query.Name)
	if name == "" {
		return Result{}, ErrMissingInput
	}
	if limit <= 0 {
		limit = DefaultAmbiguousLimit
	}

	patterns := PhonePatterns(query.Phone)
	email := strings.TrimSpace(query.Email)

	var matched []domain.Candidate
	for _, c := range candidates {
		if !containsFold(c.Name, name) && !containsFold(c.DisplayName, name) {
			continue
		}
		if len(patterns) > 0 && !containsAny(c.Phone, patterns) {
			continue
		}
		if email != "" && !containsFold(c.Email, email) {
			continue
		}
		matched = append(matched, c)
	}

	switch len(matched) {
	case 0:
		return Result{Kind: NotFound}, nil
	case 1:
		return Result{Kind: Unique, ID: matched[0].ID, Candidates: matched, Total: 1}, nil
	default:
		total := len(matched)
		if total > limit {
			matched = matched[:limit]
		}
		return Result{Kind: Ambiguous, Candidates: matched, Total: total}, nil
	}
}

// Terms lists the search terms of a query, for not-found messages
func Terms(query Query) []string {
	terms := []string{strings.TrimSpace(query.Name)}
	if p := strings.TrimSpace(query.Phone); p != "" {
		terms = append(terms, p)
	}
	if e := strings.TrimSpace(query.Email); e != "" {
		terms = append(terms, e)
	}
	return terms
}

// PartnerDomain builds the ERP search domain for a query. The ERP filters with
// ilike, so Match re-checks the returned candidates with accent folding.
func PartnerDomain(query Query) erp.Domain {
	name := strings.TrimSpace(query.Name)
	d := erp.Or(
		erp.Term("name", "ilike", name),
		erp.Term("display_name", "ilike", name),
	)

	if patterns := PhonePatterns(query.Phone); len(patterns) > 0 {
		phones := make([]erp.Domain, 0, len(patterns))
		for _, p := range patterns {
			phones = append(phones, erp.Term("phone", "ilike", p))
		}
		d = erp.And(d, erp.Or(phones...))
	}

	if email := strings.TrimSpace(query.Email); email != "" {
		d = erp.And(d, erp.Term("email", "ilike", email))
	}
	return d
}

// Fold lowercases s and strips Vietnamese diacritics, so "Nguyễn Đức" becomes "nguyen duc"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), runes.Map(foldStroke), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// đ has no combining mark to strip
func foldStroke(r rune) rune {
	switch r {
	case 'đ':
		return 'd'
	case 'Đ':
		return 'D'
	}
	return r
}

func containsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if containsFold(s, p) {
			return true
		}
	}
	return false
}
