package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/metrics"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/internal/service/openai"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// At most this many results are kept in a persisted ad-search response.
const maxSuggestedAds = 10

// ToolChatter runs one tool-calling conversation turn against the model.
type ToolChatter interface {
	ChatWithTools(ctx context.Context, messages []openai.Message, tools []openai.Tool) (*openai.Message, error)
}

// SearchFunc queries the ads index for clips matching the query text.
type SearchFunc func(ctx context.Context, queryText string, pageLimit int) ([]models.AdSearchResult, error)

const matcherInstructions = `You are an expert ad selection agent that helps match relevant advertisements to video content.

Your task is to analyze the provided video placement analysis and use the search_ads tool to find the most relevant ads.

Guidelines:
1. Review the video summary, themes, keywords, artistic style, and placement details
2. Create diverse search queries that capture different aspects of the content
3. Use the search_ads tool multiple times (3-5 searches) with different query strategies:
   - Combine main themes
   - Use specific ad keywords from placement points
   - Mix artistic style with emotional tone
   - Try variations to maximize coverage
4. Focus on finding ads that match the video's tone, style, and thematic content

Be creative and thorough in your searches to find the best possible ad matches.`

var searchAdsTool = openai.Tool{
	Type: "function",
	Function: openai.FunctionDef{
		Name: "search_ads",
		Description: "Search the ads index for advertisements matching the query. " +
			"Use themes, keywords, styles, and emotional tone from the video analysis.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"additionalProperties": false,
			"required": ["query_text"],
			"properties": {
				"query_text": {
					"type": "string",
					"description": "The search query describing desired ad content."
				}
			}
		}`),
	},
}

// AdsMatcher runs the ad-matching agent: a bounded tool-calling loop in which
// the model issues search_ads queries against the ads index, after which the
// accumulated results are deduplicated, ranked, and persisted.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AdsMatcher struct {
	chatter   ToolChatter
	search    SearchFunc
	store     ObjectStore
	pageLimit int
	maxTurns  int
}

// NewAdsMatcher creates an AdsMatcher. maxTurns bounds the conversation
// length; the loop ends early once the model stops requesting tool calls.
func NewAdsMatcher(chatter ToolChatter, search SearchFunc, store ObjectStore, pageLimit, maxTurns int) *AdsMatcher {
	if pageLimit <= 0 {
		pageLimit = 5
	}
	if maxTurns <= 0 {
		maxTurns = 8
	}
	return &AdsMatcher{
		chatter:   chatter,
		search:    search,
		store:     store,
		pageLimit: pageLimit,
		maxTurns:  maxTurns,
	}
}

// SuggestAds loads the persisted placement analysis for a video and runs the
// matching agent against it. A video with no placement document yields an
// empty response rather than an error.
func (m *AdsMatcher) SuggestAds(ctx context.Context, videoID string) (*models.SuggestAdsResponse, error) {
	var placement models.PlacementResult
	found, err := m.store.ReadJSON(ctx, placementKey(videoID), &placement)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load placement result", err)
	}
	if !found {
		logger.Log.Warn("Placement document not found", zap.String("video_id", videoID))
		return &models.SuggestAdsResponse{
			VideoID:        videoID,
			SuggestedAds:   []models.AdSearchResult{},
			PlacementCount: 0,
		}, nil
	}

	logger.Log.Info("Placement result loaded",
		zap.String("video_id", videoID),
		zap.Int("placement_count", len(placement.Placements)),
	)

	searched, err := m.FindBestAds(ctx, videoID, &placement)
	if err != nil {
		return nil, err
	}

	return &models.SuggestAdsResponse{
		VideoID:        videoID,
		SuggestedAds:   searched.Results,
		PlacementCount: len(placement.Placements),
		Placements:     placement.Placements,
	}, nil
}

// FindBestAds matches ads to a video's placement analysis, persists the
// outcome to results/ads_search_{video_id}.json, and returns it.
func (m *AdsMatcher) FindBestAds(ctx context.Context, videoID string, placement *models.PlacementResult) (*models.AdSearchResponse, error) {
	messages := []openai.Message{
		openai.SystemMessage(matcherInstructions),
		openai.UserMessage(buildMatcherContext(placement)),
	}

	var allResults []models.AdSearchResult
	var allQueries []string

	logger.Log.Info("Running ads search agent",
		zap.String("video_id", videoID),
		zap.Int("max_turns", m.maxTurns),
	)

	for turn := 0; turn < m.maxTurns; turn++ {
		reply, err := m.chatter.ChatWithTools(ctx, messages, []openai.Tool{searchAdsTool})
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeAgentAnalysis, "ads search agent failed", err)
		}
		if len(reply.ToolCalls) == 0 {
			break
		}

		messages = append(messages, *reply)
		for _, call := range reply.ToolCalls {
			summary, results, query, err := m.runSearchCall(ctx, call)
			if err != nil {
				return nil, err
			}
			if query != "" {
				allQueries = append(allQueries, query)
			}
			allResults = append(allResults, results...)
			messages = append(messages, openai.ToolMessage(call.ID, summary))
		}
	}

	logger.Log.Info("Ads search agent completed",
		zap.String("video_id", videoID),
		zap.Int("total_results", len(allResults)),
		zap.Strings("queries", allQueries),
	)

	response := &models.AdSearchResponse{
		Results: rankResults(allResults),
		Query:   strings.Join(allQueries, "; "),
	}

	if err := m.store.WriteJSON(ctx, adsSearchKey(videoID), response); err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to persist ad search results", err)
	}

	return response, nil
}

// runSearchCall executes one search_ads tool call and renders a short result
// summary for the model.
func (m *AdsMatcher) runSearchCall(ctx context.Context, call openai.ToolCall) (string, []models.AdSearchResult, string, error) {
	if call.Function.Name != "search_ads" {
		return fmt.Sprintf("Unknown tool: %s", call.Function.Name), nil, "", nil
	}

	var args struct {
		QueryText string `json:"query_text"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return fmt.Sprintf("Could not parse tool arguments: %v", err), nil, "", nil
	}

	logger.Log.Info("Agent searching for ads", zap.String("query", args.QueryText))
	metrics.RecordAgentSearch()

	results, err := m.search(ctx, args.QueryText, m.pageLimit)
	if err != nil {
		return "", nil, "", apperr.Wrap(apperr.CodeSearch, "agent ad search failed", err)
	}

	if len(results) == 0 {
		return fmt.Sprintf("No ads found for query: '%s'", args.QueryText), nil, args.QueryText, nil
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Found %d ads for query '%s':\n", len(results), args.QueryText)
	for i, result := range results {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&summary, "%d. Video ID: %s, Avg Score: %.2f, Clips: %d\n",
			i+1, result.ID, result.AverageScore(), len(result.Clips))
	}

	return summary.String(), results, args.QueryText, nil
}

// rankResults deduplicates by ad video ID (merging clips, first-seen order
// preserved among ties), sorts by average score descending, and keeps the
// top results.
func rankResults(results []models.AdSearchResult) []models.AdSearchResult {
	merged := make(map[string]int, len(results))
	unique := make([]models.AdSearchResult, 0, len(results))
	for _, result := range results {
		if i, ok := merged[result.ID]; ok {
			unique[i].Clips = append(unique[i].Clips, result.Clips...)
			continue
		}
		merged[result.ID] = len(unique)
		unique = append(unique, result)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].AverageScore() > unique[j].AverageScore()
	})

	if len(unique) > maxSuggestedAds {
		unique = unique[:maxSuggestedAds]
	}
	return unique
}

// buildMatcherContext renders the placement analysis into the agent's user
// prompt.
func buildMatcherContext(placement *models.PlacementResult) string {
	var b strings.Builder
	b.WriteString("\nVideo Analysis Summary:\n\n")
	fmt.Fprintf(&b, "Summary: %s\n\n", placement.Summary)
	fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(placement.Tags, ", "))
	fmt.Fprintf(&b, "Themes: %s\n\n", strings.Join(placement.Themes, ", "))
	fmt.Fprintf(&b, "Artistic Style: %s\n\n", placement.ArtisticStyle)
	fmt.Fprintf(&b, "Color Tone: %s\n\n", placement.GeneralColorTone)
	fmt.Fprintf(&b, "Tone Classification: %s\n\n", strings.Join(placement.ToneClassification, ", "))
	fmt.Fprintf(&b, "Number of Ad Placements Identified: %d\n\n", len(placement.Placements))
	b.WriteString("Placement Details:\n")

	for i, p := range placement.Placements {
		fmt.Fprintf(&b, "\n%d. Timestamp: %ds", i+1, p.Timestamp)
		fmt.Fprintf(&b, "\n   Themes: %s", strings.Join(p.Themes, ", "))
		fmt.Fprintf(&b, "\n   Ad Keywords: %s", strings.Join(p.AdKeywords, ", "))
		fmt.Fprintf(&b, "\n   Reason: %s", p.Reason)
		fmt.Fprintf(&b, "\n   Situation: %s\n", p.SituationDescription)
	}

	b.WriteString("\nBased on this video analysis, please search for relevant ads using the search_ads tool. " +
		"Make multiple searches with different query strategies to find the most appropriate advertisements for this content.")

	return b.String()
}
