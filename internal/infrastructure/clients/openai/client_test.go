package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/providers"
	"github.com/pakkapols/techfinder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	client.baseURL = server.URL
	return client
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)
}

func TestInterpret_ParsesFencedJSON(t *testing.T) {
	payload := "```json\n{\"query\":{\"categories\":[\"Notebooks\"],\"max_price\":20000},\"phrases\":[{\"text\":\"notebook\",\"tag\":\"filter\"},{\"text\":\"for work\",\"tag\":\"content\"}],\"reasoning\":\"category plus budget\",\"confidence\":0.9}\n```"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		chatReply(t, w, payload)
	})

	interp, err := client.Interpret(context.Background(), "notebook for work budget 20000", providers.SchemaContext{})

	require.NoError(t, err)
	assert.Equal(t, []string{"Notebooks"}, interp.Query.Categories)
	require.NotNil(t, interp.Query.MaxPrice)
	assert.Equal(t, 20000.0, *interp.Query.MaxPrice)
	assert.True(t, interp.Query.InStockOnly)
	require.Len(t, interp.Phrases, 2)
	assert.Equal(t, entities.PhraseFilter, interp.Phrases[0].Tag)
	assert.Equal(t, 0.9, interp.Confidence)
}

func TestInterpret_SkipsInvalidTags(t *testing.T) {
	payload := `{"query":{},"phrases":[{"text":"notebook","tag":"filter"},{"text":"junk","tag":"mystery"}],"confidence":0.5}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, payload)
	})

	interp, err := client.Interpret(context.Background(), "notebook", providers.SchemaContext{})

	require.NoError(t, err)
	require.Len(t, interp.Phrases, 1)
	assert.Equal(t, "notebook", interp.Phrases[0].Text)
}

func TestInterpret_MalformedOutputIsParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "I think you want a notebook!")
	})

	_, err := client.Interpret(context.Background(), "notebook", providers.SchemaContext{})
	assert.True(t, errors.Is(err, providers.ErrInterpreterParse))
}

func TestInterpret_NoPhrasesIsParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"query":{},"phrases":[],"confidence":0.1}`)
	})

	_, err := client.Interpret(context.Background(), "notebook", providers.SchemaContext{})
	assert.True(t, errors.Is(err, providers.ErrInterpreterParse))
}

func TestInterpret_ServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Interpret(context.Background(), "notebook", providers.SchemaContext{})
	assert.True(t, errors.Is(err, providers.ErrInterpreterUnavailable))
}

func TestRender_ReturnsTrimmedText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "  Here are two notebooks that fit your budget.  ")
	})

	text, err := client.Render(context.Background(), "notebook", entities.StructuredQuery{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Here are two notebooks that fit your budget.", text)
}

func TestStripMarkdownFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences(`{"a":1}`))
}
