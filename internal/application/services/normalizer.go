package services

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
)

// rewriteRule maps a vocabulary-variant pattern to its canonical term.
// Rules apply in order; earlier rules see the text before later ones do.
type rewriteRule struct {
	pattern   *regexp.Regexp
	canonical string
}

// Ordered so that multi-word variants rewrite before their single-word
// substrings (e.g. "gaming laptop" must win before "laptop" does).
var rewriteRules = []rewriteRule{
	{regexp.MustCompile(`\bgaming\s+(laptops?|notebooks?)\b`), "gaming notebook"},
	{regexp.MustCompile(`\blap\s*tops?\b`), "notebook"},
	{regexp.MustCompile(`\bnote\s*books?\b`), "notebook"},
	{regexp.MustCompile(`\bgraphics?\s*cards?\b`), "graphics card"},
	{regexp.MustCompile(`\bvga(\s+cards?)?\b`), "graphics card"},
	{regexp.MustCompile(`\bgpus?\b`), "graphics card"},
	{regexp.MustCompile(`\b(desktop(\s+pcs?)?|pcs?)\b`), "desktop pc"},
	{regexp.MustCompile(`\bprocessors?\b`), "cpu"},
	{regexp.MustCompile(`\bcpus\b`), "cpu"},
	{regexp.MustCompile(`\bmain\s*boards?\b`), "motherboard"},
	{regexp.MustCompile(`\bmobo\b`), "motherboard"},
	{regexp.MustCompile(`\b(screens?|displays?)\b`), "monitor"},
	{regexp.MustCompile(`\bmonitors\b`), "monitor"},
	{regexp.MustCompile(`\bkey\s*boards?\b`), "keyboard"},
	{regexp.MustCompile(`\b(mouses|mice)\b`), "mouse"},
	{regexp.MustCompile(`\b(head\s*phones?|head\s*sets?|ear\s*phones?)\b`), "headphone"},
}

// TextNormalizer canonicalizes spelling and vocabulary variants before
// segmentation. It is a pure function of its input: identity when nothing
// matches, never an error at call time.
type TextNormalizer struct {
	spellingDict map[string]string // misspelling → correct
}

// NewTextNormalizer creates a normalizer from a spelling-variants file.
func NewTextNormalizer(spellingPath string) (*TextNormalizer, error) {
	n := &TextNormalizer{
		spellingDict: make(map[string]string),
	}
	if err := n.loadSpellingDict(spellingPath); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *TextNormalizer) loadSpellingDict(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		n.spellingDict[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return nil
}

// Normalize lowercases, spell-corrects word by word, then applies the
// ordered vocabulary rewrites and collapses whitespace.
func (n *TextNormalizer) Normalize(utterance string) string {
	q := strings.ToLower(strings.TrimSpace(utterance))
	if q == "" {
		return ""
	}

	words := strings.Fields(q)
	for i, w := range words {
		if correction, ok := n.spellingDict[w]; ok {
			words[i] = correction
		}
	}
	q = strings.Join(words, " ")

	for _, rule := range rewriteRules {
		q = rule.pattern.ReplaceAllString(q, rule.canonical)
	}

	return strings.Join(strings.Fields(q), " ")
}
