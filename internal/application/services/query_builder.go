package services

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

// Model-number shapes that imply a category set without a synonym hit.
// A CPU model can mean a bare chip or a machine built around one; same
// logic for GPU models.
var (
	cpuModelPattern = regexp.MustCompile(`\b(core\s*)?i[3579][\s-]*\d{3,5}[a-z]{0,2}\b|\bryzen\s*[3579][\s-]*\d{3,4}[a-z]{0,3}\b`)
	gpuModelPattern = regexp.MustCompile(`\b(rtx|gtx|rx|arc)\s*\d{3,4}[a-z]{0,3}( ti| super| xt)?\b`)
)

var (
	cpuModelCategories = []string{"CPU", "Notebooks", "Desktop PC"}
	gpuModelCategories = []string{"Graphics Cards", "Gaming Notebooks", "Desktop PC"}
)

// budgetPatterns are tried in order; the first match with a plausible
// numeric value wins. Small unrelated numbers (model suffixes, screen
// sizes) fall below the plausibility floor and are ignored.
var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:budget|no more than|not more than|not over|under|within|max)\s*([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`(?:around|about)\s*([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*(?:baht|thb)\b`),
	regexp.MustCompile(`^([\d,]+(?:\.\d+)?)$`),
}

// QueryBuilderService resolves filter and inference phrases into a
// structured catalog query using the synonym table and model-name
// inference rules.
type QueryBuilderService struct {
	synonyms           map[string][]string // local term → canonical categories
	minPlausibleBudget float64

	mu              sync.RWMutex
	validCategories map[string]struct{}
}

// NewQueryBuilderService creates a builder from a synonym-table file.
func NewQueryBuilderService(synonymsPath string, minPlausibleBudget float64) (*QueryBuilderService, error) {
	b := &QueryBuilderService{
		synonyms:           make(map[string][]string),
		minPlausibleBudget: minPlausibleBudget,
		validCategories:    make(map[string]struct{}),
	}
	if err := b.loadSynonyms(synonymsPath); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *QueryBuilderService) loadSynonyms(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for term, categories := range raw {
		b.synonyms[strings.ToLower(strings.TrimSpace(term))] = categories
	}
	return nil
}

// SynonymKeys lists the local terms of the synonym table. The input
// consolidator uses them as its category keyword vocabulary.
func (b *QueryBuilderService) SynonymKeys() []string {
	keys := make([]string, 0, len(b.synonyms))
	for k := range b.synonyms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SynonymTable returns a copy of the term → categories table, used to
// give the interpreter the same vocabulary the local builder has.
func (b *QueryBuilderService) SynonymTable() map[string][]string {
	table := make(map[string][]string, len(b.synonyms))
	for term, categories := range b.synonyms {
		table[term] = append([]string(nil), categories...)
	}
	return table
}

// SetValidCategories replaces the live category set, normally sourced
// from the catalog on startup. An empty set disables the filter so a
// cold start does not reject every category.
func (b *QueryBuilderService) SetValidCategories(categories []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validCategories = make(map[string]struct{}, len(categories))
	for _, c := range categories {
		b.validCategories[c] = struct{}{}
	}
}

// FilterValidCategories keeps only categories present in the live valid
// set. With an empty valid set everything passes, matching isValidCategory.
func (b *QueryBuilderService) FilterValidCategories(categories []string) []string {
	kept := make([]string, 0, len(categories))
	for _, c := range categories {
		if b.isValidCategory(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

func (b *QueryBuilderService) isValidCategory(category string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.validCategories) == 0 {
		return true
	}
	_, ok := b.validCategories[category]
	return ok
}

// BuildResult carries the built query plus everything downstream stages
// need: the phrases filtering did not consume and the reasoning trace.
type BuildResult struct {
	Query      entities.StructuredQuery
	Unresolved []entities.Phrase
	Reasoning  string
	Dropped    []string
}

// Build turns a segmentation pass into a structured query. The
// availability predicate is always present; Validate guarantees it.
func (b *QueryBuilderService) Build(phrases []entities.Phrase) *BuildResult {
	var (
		categories []string
		reasons    []string
		unresolved []entities.Phrase
	)

	for _, p := range phrases {
		switch p.Tag {
		case entities.PhraseFilter:
			if matched := b.resolveCategories(p.Text); len(matched) > 0 {
				categories = append(categories, matched...)
				reasons = append(reasons, fmt.Sprintf("%q → category %s", p.Text, strings.Join(matched, "/")))
			} else if !containsNumber(p.Text) {
				// A filter phrase that resolves to nothing still has
				// content value; budget phrases are handled below.
				unresolved = append(unresolved, p)
			}
		case entities.PhraseInference:
			if matched := b.resolveCategories(p.Text); len(matched) > 0 {
				categories = append(categories, matched...)
				reasons = append(reasons, fmt.Sprintf("%q → category %s", p.Text, strings.Join(matched, "/")))
			} else if inferred := b.inferFromModel(p.Text); len(inferred) > 0 {
				categories = append(categories, inferred...)
				reasons = append(reasons, fmt.Sprintf("%q → inferred categories %s", p.Text, strings.Join(inferred, "/")))
			}
			// Inference phrases always reach content matching too.
			unresolved = append(unresolved, p)
		default:
			unresolved = append(unresolved, p)
		}
	}

	query := entities.StructuredQuery{
		Categories:  categories,
		InStockOnly: true,
	}

	if budget, source, ok := b.extractBudget(phrases); ok {
		query.MaxPrice = &budget
		reasons = append(reasons, fmt.Sprintf("%q → price <= %.0f", source, budget))
	}

	dropped := query.Validate()

	return &BuildResult{
		Query:      query,
		Unresolved: unresolved,
		Reasoning:  strings.Join(reasons, "; "),
		Dropped:    dropped,
	}
}

// resolveCategories looks phrase text up in the synonym table, longest
// keys first, and keeps only categories present in the live valid set.
func (b *QueryBuilderService) resolveCategories(text string) []string {
	text = strings.ToLower(text)

	keys := make([]string, 0, len(b.synonyms))
	for k := range b.synonyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	var matched []string
	for _, key := range keys {
		if !containsWholePhrase(text, key) {
			continue
		}
		for _, c := range b.synonyms[key] {
			if b.isValidCategory(c) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// inferFromModel expands vendor model numbers into the plausible
// category sets that carry such a part.
func (b *QueryBuilderService) inferFromModel(text string) []string {
	text = strings.ToLower(text)
	var inferred []string
	if cpuModelPattern.MatchString(text) {
		inferred = cpuModelCategories
	} else if gpuModelPattern.MatchString(text) {
		inferred = gpuModelCategories
	}

	valid := make([]string, 0, len(inferred))
	for _, c := range inferred {
		if b.isValidCategory(c) {
			valid = append(valid, c)
		}
	}
	return valid
}

// extractBudget scans phrase texts with the ordered budget patterns and
// returns the first amount at or above the plausibility floor.
func (b *QueryBuilderService) extractBudget(phrases []entities.Phrase) (float64, string, bool) {
	for _, pattern := range budgetPatterns {
		for _, p := range phrases {
			if p.Tag == entities.PhraseQuestion {
				continue
			}
			m := pattern.FindStringSubmatch(strings.ToLower(p.Text))
			if m == nil {
				continue
			}
			raw := strings.ReplaceAll(m[1], ",", "")
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || value < b.minPlausibleBudget {
				continue
			}
			return value, p.Text, true
		}
	}
	return 0, "", false
}

func containsWholePhrase(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func containsNumber(text string) bool {
	for _, r := range text {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
