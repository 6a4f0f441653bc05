package ai

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/models"
)

var sampleTranscript = []models.ChatMessage{
	{ID: "m1", Content: "I want to move into management", IsUser: true},
	{ID: "m2", Content: "What draws you to leading people?", IsUser: false},
}

func TestSummarize(t *testing.T) {
	client := newFakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		respondWithText(t, w, "You explored your motivation for a move into management.")
	})
	svc := NewSummaryService(client)

	summary := svc.Summarize(context.Background(), sampleTranscript, "career")
	require.Equal(t, "You explored your motivation for a move into management.", summary)
}

func TestSummarizeEmptyConversation(t *testing.T) {
	svc := NewSummaryService(NewClient("key"))
	require.Equal(t, "No conversation to summarize.", svc.Summarize(context.Background(), nil, "career"))
}

func TestSummarizeFallsBackOnFailure(t *testing.T) {
	svc := NewSummaryService(NewClient(""))
	summary := svc.Summarize(context.Background(), sampleTranscript, "career")
	require.Equal(t, "Summary generation temporarily unavailable. Please try again later.", summary)
}

func TestAnalyze(t *testing.T) {
	client := newFakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		respondWithText(t, w, `{"keyInsights":["clarity on motivation"],"mainTopics":["management transition"],"actionItems":["shadow a team lead"],"coachingThemes":["growth"],"overallSentiment":"positive","progressIndicators":["first concrete step named"]}`)
	})
	svc := NewSummaryService(client)

	analysis := svc.Analyze(context.Background(), sampleTranscript, "career")
	require.Equal(t, "positive", analysis.OverallSentiment)
	require.Equal(t, []string{"clarity on motivation"}, analysis.KeyInsights)
}

func TestAnalyzeFallsBackOnBadJSON(t *testing.T) {
	client := newFakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		respondWithText(t, w, "not json at all")
	})
	svc := NewSummaryService(client)

	analysis := svc.Analyze(context.Background(), sampleTranscript, "career")
	require.Equal(t, "neutral", analysis.OverallSentiment)
	require.Equal(t, []string{"career"}, analysis.CoachingThemes)
}

func TestAnalyzeEmptyConversation(t *testing.T) {
	svc := NewSummaryService(NewClient("key"))
	analysis := svc.Analyze(context.Background(), nil, "career")
	require.Equal(t, "neutral", analysis.OverallSentiment)
	require.Empty(t, analysis.KeyInsights)
}
