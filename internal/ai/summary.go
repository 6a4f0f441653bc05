package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/metrics"
)

const (
	summaryModel  = "gemini-1.5-flash"
	analysisModel = "gemini-1.5-pro"
)

// ConversationAnalysis is the structured breakdown of one session.
type ConversationAnalysis struct {
	KeyInsights        []string `json:"keyInsights"`
	MainTopics         []string `json:"mainTopics"`
	ActionItems        []string `json:"actionItems"`
	CoachingThemes     []string `json:"coachingThemes"`
	OverallSentiment   string   `json:"overallSentiment"`
	ProgressIndicators []string `json:"progressIndicators"`
}

// SummaryService turns finished conversations into summaries and analyses.
type SummaryService struct {
	client *Client
	log    *zap.Logger
}

// NewSummaryService builds a summary service on top of the Gemini client.
func NewSummaryService(client *Client) *SummaryService {
	return &SummaryService{client: client, log: logger.WithModule("ai.summary")}
}

// Summarize produces a short prose summary of the conversation. Failures
// degrade to a fixed message so the session can still be closed.
func (s *SummaryService) Summarize(ctx context.Context, messages []models.ChatMessage, coachType string) string {
	if len(messages) == 0 {
		return "No conversation to summarize."
	}

	prompt := fmt.Sprintf(`You are analyzing a coaching conversation between a user and a %s coach.
Please provide a concise, insightful summary that captures:

1. Key insights and breakthroughs discussed
2. Main topics covered
3. Actionable next steps identified
4. Progress indicators or growth areas
5. Overall tone and sentiment of the session

Conversation:
%s

Please provide a professional, encouraging summary that helps the user track their coaching journey and progress. Keep it under 200 words and focus on actionable insights.`,
		coachType, transcriptText(messages))

	text, err := s.client.GenerateContent(ctx, GenerateRequest{Model: summaryModel, Prompt: prompt})
	if err != nil {
		metrics.AIRequests.WithLabelValues("summary", "error").Inc()
		s.log.Warn("summary generation failed", zap.String("coach", coachType), zap.Error(err))
		return "Summary generation temporarily unavailable. Please try again later."
	}

	metrics.AIRequests.WithLabelValues("summary", "ok").Inc()
	return text
}

// Analyze produces a structured analysis of the conversation. Failures
// degrade to a placeholder analysis rather than an error.
func (s *SummaryService) Analyze(ctx context.Context, messages []models.ChatMessage, coachType string) ConversationAnalysis {
	if len(messages) == 0 {
		return ConversationAnalysis{
			KeyInsights:        []string{},
			MainTopics:         []string{},
			ActionItems:        []string{},
			CoachingThemes:     []string{},
			OverallSentiment:   "neutral",
			ProgressIndicators: []string{},
		}
	}

	system := `You are a professional coaching analysis expert.
Analyze the following coaching conversation and provide structured insights.
Return your response as valid JSON with this exact structure:
{
  "keyInsights": ["insight1", "insight2"],
  "mainTopics": ["topic1", "topic2"],
  "actionItems": ["action1", "action2"],
  "coachingThemes": ["theme1", "theme2"],
  "overallSentiment": "positive/neutral/challenging",
  "progressIndicators": ["indicator1", "indicator2"]
}`

	prompt := fmt.Sprintf("Analyze this %s coaching conversation:\n\n%s", coachType, transcriptText(messages))

	raw, err := s.client.GenerateContent(ctx, GenerateRequest{
		Model:        analysisModel,
		System:       system,
		Prompt:       prompt,
		JSONResponse: true,
	})
	if err == nil {
		var analysis ConversationAnalysis
		jsonErr := json.Unmarshal([]byte(raw), &analysis)
		if jsonErr == nil {
			metrics.AIRequests.WithLabelValues("analysis", "ok").Inc()
			return analysis
		}
		err = fmt.Errorf("decode analysis: %w", jsonErr)
	}

	metrics.AIRequests.WithLabelValues("analysis", "error").Inc()
	s.log.Warn("analysis generation failed", zap.String("coach", coachType), zap.Error(err))

	return ConversationAnalysis{
		KeyInsights:        []string{"Conversation analysis temporarily unavailable"},
		MainTopics:         []string{"Please try again later"},
		ActionItems:        []string{"Contact support if issue persists"},
		CoachingThemes:     []string{coachType},
		OverallSentiment:   "neutral",
		ProgressIndicators: []string{"Analysis pending"},
	}
}

func transcriptText(messages []models.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := "Coach"
		if msg.IsUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
