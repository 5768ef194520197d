package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/internal/service/openai"
)

// scriptedChatter replays a fixed sequence of assistant replies.
type scriptedChatter struct {
	replies []openai.Message
	calls   int
	err     error
}

func (s *scriptedChatter) ChatWithTools(_ context.Context, _ []openai.Message, _ []openai.Tool) (*openai.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.replies) {
		done := openai.Message{Role: "assistant", Content: "done"}
		return &done, nil
	}
	reply := s.replies[s.calls]
	s.calls++
	return &reply, nil
}

func toolCallMsg(id, query string) openai.Message {
	return openai.Message{
		Role: "assistant",
		ToolCalls: []openai.ToolCall{
			{
				ID:   id,
				Type: "function",
				Function: openai.FunctionCall{
					Name:      "search_ads",
					Arguments: `{"query_text":"` + query + `"}`,
				},
			},
		},
	}
}

func clip(score float64) models.AdClip {
	return models.AdClip{Score: score, VideoID: "c", Confidence: "high"}
}

func testPlacement() *models.PlacementResult {
	return &models.PlacementResult{
		Summary:            "a hike through the alps",
		Tags:               []string{"outdoors"},
		Themes:             []string{"adventure"},
		ArtisticStyle:      "documentary",
		GeneralColorTone:   "warm",
		ToneClassification: []string{"uplifting"},
		Placements: []models.Placement{
			{
				Timestamp:            42,
				Reason:               "scene break",
				SituationDescription: "summit reached",
				Themes:               []string{"achievement"},
				AdKeywords:           []string{"hiking boots"},
			},
		},
	}
}

func TestFindBestAdsMergesAndRanks(t *testing.T) {
	chatter := &scriptedChatter{replies: []openai.Message{
		toolCallMsg("call_1", "hiking boots"),
		toolCallMsg("call_2", "outdoor adventure"),
	}}

	searchResults := map[string][]models.AdSearchResult{
		"hiking boots": {
			{ID: "ad-a", Clips: []models.AdClip{clip(0.8)}},
			{ID: "ad-b", Clips: []models.AdClip{clip(0.95)}},
		},
		"outdoor adventure": {
			{ID: "ad-a", Clips: []models.AdClip{clip(0.9)}},
		},
	}
	search := func(_ context.Context, query string, _ int) ([]models.AdSearchResult, error) {
		return searchResults[query], nil
	}

	store := newMemoryStore()
	matcher := NewAdsMatcher(chatter, search, store, 5, 8)

	response, err := matcher.FindBestAds(context.Background(), "vid-1", testPlacement())
	require.NoError(t, err)

	assert.Equal(t, "hiking boots; outdoor adventure", response.Query)
	require.Len(t, response.Results, 2)
	// ad-b averages 0.95; ad-a merges to (0.8+0.9)/2 = 0.85.
	assert.Equal(t, "ad-b", response.Results[0].ID)
	assert.Equal(t, "ad-a", response.Results[1].ID)
	assert.Len(t, response.Results[1].Clips, 2)

	_, ok := store.docs["results/ads_search_vid-1.json"]
	assert.True(t, ok, "search response persisted")
}

func TestFindBestAdsCapsResults(t *testing.T) {
	chatter := &scriptedChatter{replies: []openai.Message{toolCallMsg("call_1", "everything")}}
	search := func(_ context.Context, _ string, _ int) ([]models.AdSearchResult, error) {
		results := make([]models.AdSearchResult, 14)
		for i := range results {
			results[i] = models.AdSearchResult{
				ID:    string(rune('a' + i)),
				Clips: []models.AdClip{clip(float64(i) / 20)},
			}
		}
		return results, nil
	}

	matcher := NewAdsMatcher(chatter, search, newMemoryStore(), 5, 8)
	response, err := matcher.FindBestAds(context.Background(), "vid-1", testPlacement())
	require.NoError(t, err)
	assert.Len(t, response.Results, 10)
	// Highest average score first.
	assert.Equal(t, "n", response.Results[0].ID)
}

func TestFindBestAdsBoundedTurns(t *testing.T) {
	// The model keeps requesting searches; the loop must stop at maxTurns.
	replies := make([]openai.Message, 20)
	for i := range replies {
		replies[i] = toolCallMsg("call", "again")
	}
	chatter := &scriptedChatter{replies: replies}

	searchCalls := 0
	search := func(_ context.Context, _ string, _ int) ([]models.AdSearchResult, error) {
		searchCalls++
		return nil, nil
	}

	matcher := NewAdsMatcher(chatter, search, newMemoryStore(), 5, 3)
	response, err := matcher.FindBestAds(context.Background(), "vid-1", testPlacement())
	require.NoError(t, err)
	assert.Equal(t, 3, searchCalls)
	assert.Empty(t, response.Results)
}

func TestFindBestAdsNoToolCalls(t *testing.T) {
	chatter := &scriptedChatter{}
	search := func(_ context.Context, _ string, _ int) ([]models.AdSearchResult, error) {
		t.Fatal("search should not be called")
		return nil, nil
	}

	store := newMemoryStore()
	matcher := NewAdsMatcher(chatter, search, store, 5, 8)
	response, err := matcher.FindBestAds(context.Background(), "vid-1", testPlacement())
	require.NoError(t, err)
	assert.Empty(t, response.Results)
	assert.Equal(t, "", response.Query)
	_, ok := store.docs["results/ads_search_vid-1.json"]
	assert.True(t, ok, "empty outcome still persisted")
}

func TestFindBestAdsSearchFailure(t *testing.T) {
	chatter := &scriptedChatter{replies: []openai.Message{toolCallMsg("call_1", "anything")}}
	search := func(_ context.Context, _ string, _ int) ([]models.AdSearchResult, error) {
		return nil, errors.New("index down")
	}

	matcher := NewAdsMatcher(chatter, search, newMemoryStore(), 5, 8)
	_, err := matcher.FindBestAds(context.Background(), "vid-1", testPlacement())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeSearch, apperr.CodeOf(err))
}

func TestFindBestAdsChatFailure(t *testing.T) {
	chatter := &scriptedChatter{err: errors.New("model unavailable")}
	matcher := NewAdsMatcher(chatter, nil, newMemoryStore(), 5, 8)

	_, err := matcher.FindBestAds(context.Background(), "vid-1", testPlacement())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAgentAnalysis, apperr.CodeOf(err))
}

func TestBuildMatcherContext(t *testing.T) {
	context := buildMatcherContext(testPlacement())

	assert.Contains(t, context, "Summary: a hike through the alps")
	assert.Contains(t, context, "Themes: adventure")
	assert.Contains(t, context, "Number of Ad Placements Identified: 1")
	assert.Contains(t, context, "1. Timestamp: 42s")
	assert.Contains(t, context, "Ad Keywords: hiking boots")
	assert.Contains(t, context, "search_ads tool")
}

func TestSuggestAdsNoPlacement(t *testing.T) {
	matcher := NewAdsMatcher(&scriptedChatter{}, nil, newMemoryStore(), 5, 8)

	response, err := matcher.SuggestAds(context.Background(), "vid-unknown")
	require.NoError(t, err)
	assert.Equal(t, "vid-unknown", response.VideoID)
	assert.Empty(t, response.SuggestedAds)
	assert.Zero(t, response.PlacementCount)
}

func TestSuggestAdsWithPlacement(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.WriteJSON(context.Background(), "results/placement_vid-1.json", testPlacement()))

	chatter := &scriptedChatter{replies: []openai.Message{toolCallMsg("call_1", "hiking boots")}}
	search := func(_ context.Context, _ string, _ int) ([]models.AdSearchResult, error) {
		return []models.AdSearchResult{{ID: "ad-a", Clips: []models.AdClip{clip(0.8)}}}, nil
	}

	matcher := NewAdsMatcher(chatter, search, store, 5, 8)
	response, err := matcher.SuggestAds(context.Background(), "vid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, response.PlacementCount)
	require.Len(t, response.SuggestedAds, 1)
	assert.Equal(t, "ad-a", response.SuggestedAds[0].ID)
	require.Len(t, response.Placements, 1)
}

func TestSuggestAdsStoreError(t *testing.T) {
	store := newMemoryStore()
	store.readErr = errors.New("bucket unreachable")
	matcher := NewAdsMatcher(&scriptedChatter{}, nil, store, 5, 8)

	_, err := matcher.SuggestAds(context.Background(), "vid-1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodePersistence, apperr.CodeOf(err))
}

func TestRankResultsEmptyClipsLast(t *testing.T) {
	ranked := rankResults([]models.AdSearchResult{
		{ID: "empty", Clips: nil},
		{ID: "scored", Clips: []models.AdClip{clip(0.75)}},
	})
	require.Len(t, ranked, 2)
	assert.Equal(t, "scored", ranked[0].ID)
	assert.Equal(t, "empty", ranked[1].ID)
}
