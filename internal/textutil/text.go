// Package textutil holds the text helpers shared by the pipeline stages:
// slugs, tag stripping, word counting, stopwords and keyword selection.
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	wordRe      = regexp.MustCompile(`[\p{L}\p{N}]+`)
	nonSlugRe   = regexp.MustCompile(`[^a-z0-9]+`)
	sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*\s+`)
)

// Slugify lowercases s, removes accents and joins alphanumeric runs with '-'.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	s = RemoveAccents(strings.ToLower(s))
	s = nonSlugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugifyMax slugifies s and cuts the result to at most n bytes without
// leaving a trailing separator.
func SlugifyMax(s string, n int) string {
	slug := Slugify(s)
	if len(slug) <= n {
		return slug
	}
	return strings.TrimRight(slug[:n], "-")
}

// RemoveAccents strips combining marks after NFD decomposition.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// StripTags removes HTML tags, decodes entities and collapses whitespace.
func StripTags(s string) string {
	cleaned := tagRe.ReplaceAllString(s, " ")
	cleaned = html.UnescapeString(cleaned)
	return NormalizeSpace(cleaned)
}

// NormalizeSpace collapses runs of whitespace into single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize lowercases s and collapses whitespace. Two titles are the same
// title when their normalized forms are equal.
func Normalize(s string) string {
	return NormalizeSpace(strings.ToLower(s))
}

// CountWords counts whitespace-separated words of s after tag removal.
func CountWords(s string) int {
	return len(strings.Fields(StripTags(s)))
}

// Words returns the lowercase letter/digit runs of s.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// WordSet returns the distinct lowercase words of s.
func WordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b| over the word sets of a and b.
func Jaccard(a, b string) float64 {
	sa, sb := WordSet(a), WordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// OverlapRatio returns |a∩b| / min(|a|, |b|) over the word sets.
func OverlapRatio(a, b string) float64 {
	sa, sb := WordSet(a), WordSet(b)
	small := min(len(sa), len(sb))
	if small == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(small)
}

// Sentences splits plain text after sentence-final punctuation.
func Sentences(s string) []string {
	s = NormalizeSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(s, -1) {
		out = append(out, strings.TrimSpace(s[last:loc[1]]))
		last = loc[1]
	}
	if rest := strings.TrimSpace(s[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Keywords returns up to limit distinct words of s that are at least minLen
// runes long and not stopwords, in order of first appearance.
func Keywords(s string, minLen, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range Words(s) {
		if len([]rune(w)) < minLen || IsStopword(w) || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
