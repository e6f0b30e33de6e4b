package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

const (
	titleMatchBase       = 90
	descriptionMatchBase = 70
	perExtraMatchBonus   = 2
	relevanceBar         = descriptionMatchBase
)

// RankingService scores retrieval candidates against the phrases that
// filtering could not consume. Scoring is deterministic: the same phrases
// and candidate set always produce the same ordering.
type RankingService struct {
	candidateLimit int
	resultLimit    int
}

// NewRankingService creates a ranking service with the candidate and
// result bounds.
func NewRankingService(candidateLimit, resultLimit int) *RankingService {
	return &RankingService{
		candidateLimit: candidateLimit,
		resultLimit:    resultLimit,
	}
}

// Rank orders candidates for display. Without unresolved phrases there is
// nothing to match on, so candidates sort by popularity, rating, then
// cheapest first. With phrases, each candidate scores 0 to 100: a token
// found in the title lands in the 90 to 100 band, a token found only in
// the description lands in 70 to 80, extra matches add small bonuses with
// a hard cap. Candidates below the relevance bar drop out unless that
// would empty the set.
func (s *RankingService) Rank(phrases []entities.Phrase, candidates []*entities.Product) []entities.RankedResult {
	if len(candidates) == 0 {
		return nil
	}

	matchable := matchablePhrases(phrases)
	if len(matchable) == 0 {
		return s.popularitySort(candidates)
	}

	pool := candidates
	if len(pool) > s.candidateLimit {
		pool = pool[:s.candidateLimit]
	}

	ranked := make([]entities.RankedResult, 0, len(pool))
	for _, product := range pool {
		score, match := scoreProduct(product, matchable)
		ranked = append(ranked, entities.RankedResult{
			Product: product,
			Score:   score,
			Match:   match,
		})
	}

	relevant := make([]entities.RankedResult, 0, len(ranked))
	for _, r := range ranked {
		if r.Score >= relevanceBar {
			relevant = append(relevant, r)
		}
	}
	if len(relevant) > 0 {
		ranked = relevant
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Product.Popularity > ranked[j].Product.Popularity
	})

	if len(ranked) > s.resultLimit {
		ranked = ranked[:s.resultLimit]
	}
	return ranked
}

// popularitySort is the trivial ordering used when no semantic matching
// is needed or possible: popularity desc, rating desc, price asc.
func (s *RankingService) popularitySort(candidates []*entities.Product) []entities.RankedResult {
	sorted := make([]*entities.Product, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Popularity != sorted[j].Popularity {
			return sorted[i].Popularity > sorted[j].Popularity
		}
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		return sorted[i].SalePrice < sorted[j].SalePrice
	})

	if len(sorted) > s.resultLimit {
		sorted = sorted[:s.resultLimit]
	}

	ranked := make([]entities.RankedResult, 0, len(sorted))
	for _, p := range sorted {
		ranked = append(ranked, entities.RankedResult{Product: p})
	}
	return ranked
}

// scoreProduct matches every phrase token of length three or more against
// the candidate's title and description and combines the hits.
func scoreProduct(product *entities.Product, phrases []entities.Phrase) (float64, entities.MatchDetail) {
	title := strings.ToLower(product.Title)
	description := strings.ToLower(product.Description)

	var match entities.MatchDetail
	titleHits := 0
	descHits := 0

	for _, p := range phrases {
		for _, tok := range strings.Fields(strings.ToLower(p.Text)) {
			if len(tok) < 3 {
				continue
			}
			switch {
			case containsWholePhrase(title, tok):
				titleHits++
				match.TitleMatches = append(match.TitleMatches, tok)
			case containsWholePhrase(description, tok):
				descHits++
				match.DescriptionMatches = append(match.DescriptionMatches, tok)
			}
		}
	}

	var score float64
	switch {
	case titleHits > 0:
		score = titleMatchBase + float64((titleHits-1)+descHits)*perExtraMatchBonus
		if score > 100 {
			score = 100
		}
		match.Reasoning = fmt.Sprintf("%d title match(es), %d description match(es)", titleHits, descHits)
	case descHits > 0:
		score = descriptionMatchBase + float64(descHits-1)*perExtraMatchBonus
		if score > descriptionMatchBase+10 {
			score = descriptionMatchBase + 10
		}
		match.Reasoning = fmt.Sprintf("%d description match(es)", descHits)
	default:
		match.Reasoning = "no text match"
	}

	return score, match
}

// matchablePhrases keeps the phrases worth matching against item text.
// Question phrases carry intent, not requirements, so they are excluded.
func matchablePhrases(phrases []entities.Phrase) []entities.Phrase {
	kept := make([]entities.Phrase, 0, len(phrases))
	for _, p := range phrases {
		if p.Tag == entities.PhraseQuestion || strings.TrimSpace(p.Text) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
