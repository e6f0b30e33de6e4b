package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/providers"
	"github.com/pakkapols/techfinder/internal/infrastructure/observability"
	apperrors "github.com/pakkapols/techfinder/pkg/errors"
)

const interpretationCacheTTL = 86400 // 24 hours

// ChatPipeline wires the full conversational search flow: consolidate,
// normalize, segment, build a query, retrieve with fallbacks, re-rank,
// render. Utterances asking for a whole system build short-circuit to the
// planner. The interpreter and responder collaborators are optional; every
// stage they back has a deterministic local fallback, and no failure
// escapes Submit.
type ChatPipeline struct {
	consolidator *InputConsolidator
	normalizer   *TextNormalizer
	segmenter    *PhraseSegmenter
	builder      *QueryBuilderService
	retrieval    *RetrievalService
	ranking      *RankingService
	memory       *ConversationMemoryService
	planner      *BuildPlannerService

	interpreter providers.Interpreter
	responder   providers.Responder
	cache       providers.CacheProvider
	metrics     *observability.Metrics

	schema             providers.SchemaContext
	interpreterTimeout time.Duration
	retrievalTimeout   time.Duration
}

// ChatPipelineDeps collects the pipeline's collaborators. Planner,
// Interpreter, Responder, Cache and Metrics may be nil; the pipeline
// degrades to its local fallbacks without them.
type ChatPipelineDeps struct {
	Consolidator *InputConsolidator
	Normalizer   *TextNormalizer
	Segmenter    *PhraseSegmenter
	Builder      *QueryBuilderService
	Retrieval    *RetrievalService
	Ranking      *RankingService
	Memory       *ConversationMemoryService
	Planner      *BuildPlannerService

	Interpreter providers.Interpreter
	Responder   providers.Responder
	Cache       providers.CacheProvider
	Metrics     *observability.Metrics

	Schema             providers.SchemaContext
	InterpreterTimeout time.Duration
	RetrievalTimeout   time.Duration
}

// NewChatPipeline creates a pipeline from its dependencies. Schema fields
// outside the structured-query whitelist are stripped so the interpreter
// is never prompted with fields the query cannot carry.
func NewChatPipeline(deps ChatPipelineDeps) *ChatPipeline {
	fields := make([]string, 0, len(deps.Schema.Fields))
	for _, f := range deps.Schema.Fields {
		if entities.IsWhitelistedField(f) {
			fields = append(fields, f)
		}
	}
	deps.Schema.Fields = fields

	return &ChatPipeline{
		consolidator:       deps.Consolidator,
		normalizer:         deps.Normalizer,
		segmenter:          deps.Segmenter,
		builder:            deps.Builder,
		retrieval:          deps.Retrieval,
		ranking:            deps.Ranking,
		memory:             deps.Memory,
		planner:            deps.Planner,
		interpreter:        deps.Interpreter,
		responder:          deps.Responder,
		cache:              deps.Cache,
		metrics:            deps.Metrics,
		schema:             deps.Schema,
		interpreterTimeout: deps.InterpreterTimeout,
		retrievalTimeout:   deps.RetrievalTimeout,
	}
}

// Submit runs one utterance through the whole pipeline and always returns
// a well-formed result. Unrecovered failures degrade to an apologetic
// empty result with zero confidence.
func (p *ChatPipeline) Submit(ctx context.Context, utterance, sessionID string) (result *entities.ChatResult) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			observability.LoggerFromContext(ctx).Error().Interface("panic", r).Str("session_id", sessionID).Msg("pipeline panicked")
			outcome = "panic"
			result = p.apologeticResult(sessionID)
		}
		observability.RecordRequestMetric(ctx, p.metrics, outcome, time.Since(start))
	}()

	ctx, span := observability.StartSpan(ctx, "chat.submit")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	consolidated, merged := p.consolidator.Consolidate(sessionID, utterance)
	normalized := p.normalizer.Normalize(consolidated)

	if p.planner != nil {
		if req := p.planner.Detect(normalized); req != nil {
			result = p.submitBuild(ctx, utterance, sessionID, normalized, req)
			if len(result.Results) == 0 {
				outcome = "empty"
			}
			return result
		}
	}

	interpretation, usedInterpreter := p.interpret(ctx, normalized)

	var (
		phrases    []entities.Phrase
		query      entities.StructuredQuery
		reasoning  string
		confidence float64
	)
	if usedInterpreter {
		phrases = interpretation.Phrases
		local := p.builder.Build(phrases)
		query = p.mergeQueries(interpretation.Query, local.Query)
		reasoning = interpretation.Reasoning
		confidence = interpretation.Confidence
		if dropped := query.Validate(); len(dropped) > 0 {
			logger.Debug().Strs("dropped", dropped).Msg("dropped invalid query fields from interpretation")
		}
	} else {
		phrases = p.segmenter.Segment(normalized)
		local := p.builder.Build(phrases)
		query = local.Query
		reasoning = local.Reasoning
		confidence = localConfidence(local)
		if len(local.Dropped) > 0 {
			logger.Debug().Strs("dropped", local.Dropped).Msg("dropped invalid query fields")
		}
	}

	unresolved := unresolvedPhrases(phrases)

	retrievalCtx, cancel := context.WithTimeout(ctx, p.retrievalTimeout)
	retrieved := p.retrieval.Retrieve(retrievalCtx, query, unresolved)
	cancel()

	ranked := p.ranking.Rank(unresolved, retrieved.Products)
	displayText := p.render(ctx, utterance, query, reasoning, ranked)

	p.memory.AddTurn(sessionID, utterance, query.Categories, query.MaxPrice)

	if len(ranked) == 0 {
		outcome = "empty"
	}

	diag := entities.ChatDiagnostics{
		SessionID:         sessionID,
		NormalizedInput:   normalized,
		Phrases:           phrases,
		FallbackDepth:     retrieved.FallbackDepth,
		RawCandidateCount: len(retrieved.Products),
		InterpreterUsed:   usedInterpreter,
	}
	if merged {
		diag.ConsolidatedInput = consolidated
	}

	return &entities.ChatResult{
		DisplayText: displayText,
		Results:     ranked,
		Query:       query,
		Reasoning:   reasoning,
		Confidence:  confidence,
		Diagnostics: diag,
	}
}

// submitBuild answers a system-build request: compose a plan from the
// budget-ratio template and present the slot picks as the result list.
// A rejected plan (unknown kind, budget below the template floor) renders
// as an advisory message instead of an error.
func (p *ChatPipeline) submitBuild(ctx context.Context, utterance, sessionID, normalized string, req *entities.BuildRequest) *entities.ChatResult {
	diag := entities.ChatDiagnostics{
		SessionID:       sessionID,
		NormalizedInput: normalized,
	}

	plan, err := p.planner.Compose(ctx, req)
	if err != nil {
		message := err.Error()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
		return &entities.ChatResult{
			DisplayText: fmt.Sprintf("I can put a build together for you, but %s.", message),
			Query:       entities.StructuredQuery{InStockOnly: true},
			Reasoning:   fmt.Sprintf("build request %s rejected", req.Kind),
			Confidence:  0.5,
			Diagnostics: diag,
		}
	}

	var (
		results    []entities.RankedResult
		categories []string
		reasons    []string
	)
	for _, slot := range plan.Slots {
		categories = append(categories, slot.Category)
		reasons = append(reasons, fmt.Sprintf("%s <= %.0f", slot.Category, slot.Allocation))
		if slot.Pick == nil {
			continue
		}
		results = append(results, entities.RankedResult{
			Product: slot.Pick,
			Score:   100,
			Match: entities.MatchDetail{
				Reasoning: fmt.Sprintf("%s slot, %.0f baht allocated", slot.Category, slot.Allocation),
			},
		})
	}

	query := entities.StructuredQuery{
		Categories:  categories,
		MaxPrice:    &plan.Budget,
		InStockOnly: true,
	}
	query.Validate()

	p.memory.AddTurn(sessionID, utterance, query.Categories, query.MaxPrice)
	diag.RawCandidateCount = len(results)

	return &entities.ChatResult{
		DisplayText: buildDisplayText(plan),
		Results:     results,
		Query:       query,
		Reasoning:   fmt.Sprintf("%s build (%s tier): %s", plan.Name, plan.Tier, strings.Join(reasons, "; ")),
		Confidence:  0.85,
		Diagnostics: diag,
	}
}

func buildDisplayText(plan *entities.BuildPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s build for a %.0f baht budget (%s tier):\n", plan.Name, plan.Budget, plan.Tier)
	for _, slot := range plan.Slots {
		if slot.Pick == nil {
			fmt.Fprintf(&b, "- %s: nothing in stock under %.0f baht\n", slot.Category, slot.Allocation)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s at %.0f baht\n", slot.Category, slot.Pick.Title, slot.Pick.SalePrice)
	}
	fmt.Fprintf(&b, "Total: %.0f baht.", plan.Total)
	return b.String()
}

// interpret calls the interpretation collaborator once, behind the cache
// and a timeout. Any failure means the deterministic path takes over.
func (p *ChatPipeline) interpret(ctx context.Context, normalized string) (*providers.Interpretation, bool) {
	if p.interpreter == nil || normalized == "" {
		return nil, false
	}

	cacheKey := "interp:" + normalized
	if p.cache != nil {
		if data, err := p.cache.Get(ctx, cacheKey); err == nil {
			var cached providers.Interpretation
			if json.Unmarshal(data, &cached) == nil {
				observability.RecordCacheHit(ctx, p.metrics, "interpretation")
				return &cached, true
			}
		} else {
			observability.RecordCacheMiss(ctx, p.metrics, "interpretation")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.interpreterTimeout)
	defer cancel()

	interpretation, err := p.interpreter.Interpret(callCtx, normalized, p.schema)
	if err != nil {
		stage := "interpret"
		if errors.Is(err, providers.ErrInterpreterParse) {
			stage = "interpret_parse"
		}
		observability.RecordInterpreterFallback(ctx, p.metrics, stage)
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("interpreter failed, using local segmentation")
		return nil, false
	}

	if p.cache != nil {
		if data, err := json.Marshal(interpretation); err == nil {
			_ = p.cache.Set(ctx, cacheKey, data, interpretationCacheTTL)
		}
	}
	return interpretation, true
}

// mergeQueries prefers the interpreter's fields but fills gaps from the
// deterministic build, so a partial interpretation still yields a usable
// query. Interpreter categories absent from the live catalog are dropped
// before the gap fill, so a hallucinated category falls back to the local
// resolution instead of matching nothing.
func (p *ChatPipeline) mergeQueries(interpreted, local entities.StructuredQuery) entities.StructuredQuery {
	merged := interpreted
	merged.Categories = p.builder.FilterValidCategories(merged.Categories)
	if len(merged.Categories) == 0 {
		merged.Categories = local.Categories
	}
	if merged.MaxPrice == nil {
		merged.MaxPrice = local.MaxPrice
	}
	if merged.MinPrice == nil {
		merged.MinPrice = local.MinPrice
	}
	merged.InStockOnly = true
	return merged
}

// render produces display text via the responder when available, else the
// deterministic template.
func (p *ChatPipeline) render(ctx context.Context, utterance string, query entities.StructuredQuery, reasoning string, results []entities.RankedResult) string {
	if p.responder != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.interpreterTimeout)
		defer cancel()
		if text, err := p.responder.Render(callCtx, utterance, query, reasoning, results); err == nil && text != "" {
			return text
		} else if err != nil {
			observability.RecordInterpreterFallback(ctx, p.metrics, "render")
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("responder failed, using template")
		}
	}
	return templateDisplayText(results)
}

func templateDisplayText(results []entities.RankedResult) string {
	if len(results) == 0 {
		return "Sorry, I couldn't find any products matching your request. Try a different category or a higher budget."
	}
	top := results[0].Product
	return fmt.Sprintf("Found %d matching products. Top pick: %s at %.0f baht.", len(results), top.Title, top.SalePrice)
}

// localConfidence is a coarse score for the deterministic path: resolved
// predicates raise it, a bare content phrase keeps it low.
func localConfidence(build *BuildResult) float64 {
	confidence := 0.4
	if len(build.Query.Categories) > 0 {
		confidence += 0.3
	}
	if build.Query.MaxPrice != nil {
		confidence += 0.2
	}
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}

// unresolvedPhrases keeps the phrases filtering does not consume: content,
// inference and question phrases.
func unresolvedPhrases(phrases []entities.Phrase) []entities.Phrase {
	kept := make([]entities.Phrase, 0, len(phrases))
	for _, p := range phrases {
		if p.Tag == entities.PhraseFilter {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (p *ChatPipeline) apologeticResult(sessionID string) *entities.ChatResult {
	return &entities.ChatResult{
		DisplayText: "Sorry, something went wrong while searching. Please try again.",
		Results:     nil,
		Query:       entities.StructuredQuery{InStockOnly: true},
		Confidence:  0,
		Diagnostics: entities.ChatDiagnostics{SessionID: sessionID},
	}
}
