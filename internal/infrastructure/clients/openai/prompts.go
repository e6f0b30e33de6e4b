package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/providers"
)

const interpreterSystemPrompt = `You are the query analyzer for an IT-store shopping assistant. Return ONLY valid JSON with this schema:
{
  "query": {
    "categories": string[] (canonical category names drawn ONLY from the valid category list),
    "max_price": number or null (upper budget bound, omit when the user gave none)
  },
  "phrases": [
    {"text": string, "tag": "filter" | "inference" | "content" | "question"}
  ],
  "reasoning": string (one short sentence per predicate, naming the phrase that produced it),
  "confidence": number (0..1)
}
Tagging rules: "filter" = explicit category or price expression; "inference" = a specific product or model name (Ryzen 5 5600G, RTX 4060) whose category must be inferred; "content" = brand, usage or feature requirements needing text matching; "question" = requests for recommendation or yes/no evaluation. Question phrases must never produce predicates. Use only the whitelisted fields; never invent category names outside the valid list.`

const responderSystemPrompt = `You are a professional IT sales assistant. Write a short, natural recommendation in the user's language. Highlight price, rating, popularity and discounts for the top items. Be friendly, use at most a couple of emoji, and never invent products that are not in the provided list. If the list is empty, apologize and suggest loosening the budget or category.`

func buildInterpreterUserPrompt(utterance string, schema providers.SchemaContext) string {
	synonyms, _ := json.Marshal(schema.SynonymTable)
	return fmt.Sprintf(
		"Utterance: %q\nFilterable fields: %s\nValid categories: %s\nSynonym table: %s\n",
		utterance,
		strings.Join(schema.Fields, ", "),
		strings.Join(schema.ValidCategories, ", "),
		synonyms,
	)
}

func buildResponderUserPrompt(utterance string, query entities.StructuredQuery, reasoning string, results []entities.RankedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User asked: %q\n", utterance)
	fmt.Fprintf(&b, "Applied filter: %s\n", query.String())
	if reasoning != "" {
		fmt.Fprintf(&b, "Search reasoning: %s\n", reasoning)
	}
	fmt.Fprintf(&b, "Top results (%d):\n", len(results))
	for i, r := range results {
		if i >= 3 {
			break
		}
		p := r.Product
		fmt.Fprintf(&b, "%d. %s - %.0f", i+1, p.Title, p.SalePrice)
		if d := p.DiscountPercent(); d > 0 {
			fmt.Fprintf(&b, " (%d%% off %.0f)", d, p.Price)
		}
		fmt.Fprintf(&b, ", rating %.1f/5 (%d reviews), %d views, %d in stock\n",
			p.Rating, p.ReviewCount, p.Popularity, p.Stock)
	}
	return b.String()
}
