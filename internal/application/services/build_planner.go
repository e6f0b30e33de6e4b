package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
	"github.com/pakkapols/techfinder/internal/infrastructure/observability"
	apperrors "github.com/pakkapols/techfinder/pkg/errors"
)

// buildCandidateLimit bounds the per-slot catalog query. Slots are filled
// from the default retrieval ordering, so the first candidate wins.
const buildCandidateLimit = 5

// buildRequestPatterns mark an utterance as a whole-system build request
// rather than a single-product search.
var buildRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bbuild\s+(?:me\s+)?an?\b`),
	regexp.MustCompile(`\bspec\s+(?:out|me)\b`),
	regexp.MustCompile(`\bput\s+together\b`),
	regexp.MustCompile(`\b(?:full|complete|whole)\s+(?:setup|set\s?up|rig|system)\b`),
	regexp.MustCompile(`\bbuild\b[^.]*\bbudget\b`),
}

// buildBudgetRange handles "20000-30000" style budgets; planning uses the
// upper bound.
var buildBudgetRange = regexp.MustCompile(`([\d,]+)\s*(?:-|to)\s*([\d,]+)`)

var desktopWords = []string{"desktop", "pc", "computer", "rig", "tower"}
var notebookWords = []string{"laptop", "notebook"}

// buildUsagePatterns map usage keywords onto a build flavor. Gaming wins
// over everything else when both appear.
var buildUsagePatterns = map[string]struct {
	keywords []string
	flavor   string
}{
	"gaming":           {[]string{"gaming", "game", "games", "esports", "valorant", "fps", "shooter"}, "gaming"},
	"work_office":      {[]string{"work", "office", "excel", "spreadsheet", "documents"}, "work"},
	"content_creation": {[]string{"photoshop", "premiere", "editing", "render", "content"}, "work"},
	"programming":      {[]string{"programming", "coding", "code", "development"}, "work"},
}

var buildNeedPatterns = map[string][]string{
	"portable": {"portable", "lightweight", "travel"},
	"quiet":    {"quiet", "silent"},
	"rgb":      {"rgb", "lighting"},
	"upgrade":  {"upgrade", "upgradable", "expandable"},
}

type buildSlotTemplate struct {
	category string
	ratio    float64
}

type buildTierTemplate struct {
	label string
	min   float64
	max   float64
}

type buildTemplate struct {
	name  string
	tiers []buildTierTemplate
	slots []buildSlotTemplate
}

// buildTemplates split a budget across catalog categories in priority
// order. Notebook builds put most of the budget into the machine itself
// and leave the remainder for peripherals.
var buildTemplates = map[string]buildTemplate{
	"gaming_desktop": {
		name: "Gaming Desktop",
		tiers: []buildTierTemplate{
			{"budget", 15000, 30000},
			{"mid", 30000, 60000},
			{"high", 60000, 100000},
			{"extreme", 100000, 200000},
		},
		slots: []buildSlotTemplate{
			{"Graphics Cards", 0.35},
			{"CPU", 0.20},
			{"RAM", 0.15},
			{"SSD", 0.10},
			{"Motherboard", 0.08},
			{"Monitor", 0.07},
			{"Keyboard", 0.05},
		},
	},
	"work_desktop": {
		name: "Work Desktop",
		tiers: []buildTierTemplate{
			{"budget", 10000, 25000},
			{"mid", 25000, 50000},
			{"high", 50000, 80000},
		},
		slots: []buildSlotTemplate{
			{"CPU", 0.30},
			{"RAM", 0.20},
			{"SSD", 0.15},
			{"Motherboard", 0.12},
			{"Monitor", 0.10},
			{"Keyboard", 0.08},
			{"Graphics Cards", 0.05},
		},
	},
	"gaming_notebook": {
		name: "Gaming Notebook",
		tiers: []buildTierTemplate{
			{"budget", 25000, 40000},
			{"mid", 40000, 70000},
			{"high", 70000, 120000},
			{"extreme", 120000, 200000},
		},
		slots: []buildSlotTemplate{
			{"Gaming Notebooks", 0.85},
			{"Headphone", 0.08},
			{"Mouse", 0.07},
		},
	},
	"work_notebook": {
		name: "Work Notebook",
		tiers: []buildTierTemplate{
			{"budget", 15000, 30000},
			{"mid", 30000, 50000},
			{"high", 50000, 80000},
		},
		slots: []buildSlotTemplate{
			{"Notebooks", 0.90},
			{"Mouse", 0.05},
			{"Keyboard", 0.05},
		},
	},
}

// BuildPlannerService turns "build me a ..." requests into component plans:
// it detects the request, classifies the build kind from usage keywords and
// fills each component slot from the catalog within its budget share.
type BuildPlannerService struct {
	products repositories.ProductRepository
}

func NewBuildPlannerService(products repositories.ProductRepository) *BuildPlannerService {
	return &BuildPlannerService{products: products}
}

// Detect reports whether a normalized utterance asks for a system build.
// It returns nil for plain product searches.
func (s *BuildPlannerService) Detect(normalized string) *entities.BuildRequest {
	matched := false
	for _, pattern := range buildRequestPatterns {
		if pattern.MatchString(normalized) {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}
	return s.extractRequirements(normalized)
}

func (s *BuildPlannerService) extractRequirements(normalized string) *entities.BuildRequest {
	req := &entities.BuildRequest{Kind: "desktop"}

	if containsAnyWord(normalized, notebookWords) && !containsAnyWord(normalized, desktopWords) {
		req.Kind = "notebook"
	}

	flavor := "work"
	for usage, config := range buildUsagePatterns {
		if containsAnyWord(normalized, config.keywords) {
			req.Usage = append(req.Usage, usage)
			if config.flavor == "gaming" {
				flavor = "gaming"
			}
		}
	}
	req.Kind = flavor + "_" + req.Kind

	req.Budget = extractBuildBudget(normalized)

	for need, keywords := range buildNeedPatterns {
		if containsAnyWord(normalized, keywords) {
			req.Needs = append(req.Needs, need)
		}
	}

	return req
}

// extractBuildBudget scans the whole utterance rather than phrases; build
// detection runs before segmentation. A stated range plans against its
// upper bound.
func extractBuildBudget(normalized string) float64 {
	for _, pattern := range budgetPatterns {
		m := pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return value
	}
	if m := buildBudgetRange.FindStringSubmatch(normalized); m != nil {
		if upper, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64); err == nil {
			return upper
		}
	}
	return 0
}

// Compose fills the template for the requested kind, one catalog query per
// slot capped at that slot's budget share. A slot with no product under
// its allocation stays empty and is reported in Unfilled.
func (s *BuildPlannerService) Compose(ctx context.Context, req *entities.BuildRequest) (*entities.BuildPlan, error) {
	template, ok := buildTemplates[req.Kind]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown build kind %q", req.Kind))
	}

	floor := template.tiers[0].min
	if req.Budget < floor {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("a %s build needs a budget of at least %.0f baht", template.name, floor))
	}

	logger := observability.LoggerFromContext(ctx)

	plan := &entities.BuildPlan{
		Name:   template.name,
		Kind:   req.Kind,
		Tier:   tierLabel(template.tiers, req.Budget),
		Budget: req.Budget,
		Slots:  make([]entities.BuildSlot, 0, len(template.slots)),
	}

	for _, slot := range template.slots {
		allocation := math.Round(req.Budget * slot.ratio)
		query := entities.StructuredQuery{
			Categories:  []string{slot.category},
			MaxPrice:    &allocation,
			InStockOnly: true,
		}

		candidates, err := s.products.Query(ctx, query, entities.DefaultRetrievalSort(), buildCandidateLimit)
		if err != nil {
			logger.Warn().Err(err).Str("category", slot.category).Msg("build slot query failed")
			candidates = nil
		}

		filled := entities.BuildSlot{Category: slot.category, Allocation: allocation}
		if len(candidates) > 0 {
			filled.Pick = candidates[0]
			plan.Total += candidates[0].SalePrice
		} else {
			plan.Unfilled = append(plan.Unfilled, slot.category)
		}
		plan.Slots = append(plan.Slots, filled)
	}

	return plan, nil
}

func tierLabel(tiers []buildTierTemplate, budget float64) string {
	for _, tier := range tiers {
		if budget >= tier.min && budget < tier.max {
			return tier.label
		}
	}
	return tiers[len(tiers)-1].label
}

func containsAnyWord(text string, words []string) bool {
	for _, w := range words {
		if containsWholePhrase(text, w) {
			return true
		}
	}
	return false
}
