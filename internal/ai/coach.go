package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/metrics"
)

const chatModel = "gemini-2.5-flash"

// historyWindow is the number of trailing messages included as context.
const historyWindow = 10

// Coach describes a coaching persona.
type Coach struct {
	Name        string
	Title       string
	Description string
	Specialties []string
}

// Coaches lists every available persona keyed by coach type.
var Coaches = map[string]Coach{
	"leadership": {
		Name:        "Samuel",
		Title:       "Leadership Coach",
		Description: "Transform from successful manager to visionary leader",
		Specialties: []string{"Executive presence", "Strategic thinking", "Team leadership", "Organizational change"},
	},
	"performance": {
		Name:        "Rohan",
		Title:       "Performance Coach",
		Description: "Accelerate your performance to stand out and advance",
		Specialties: []string{"Productivity optimization", "Goal achievement", "Skill development", "Performance reviews"},
	},
	"career": {
		Name:        "Maya",
		Title:       "Career Coach",
		Description: "Navigate career transitions and accelerate growth strategically",
		Specialties: []string{"Career planning", "Job transitions", "Networking", "Salary negotiation"},
	},
	"hipo": {
		Name:        "Aria",
		Title:       "HiPo Coach",
		Description: "Strategic career guidance for high-potential professionals",
		Specialties: []string{"Strategic thinking", "Executive presence", "Leadership pipeline", "High-impact decisions"},
	},
	"life": {
		Name:        "Zara",
		Title:       "Life Coach",
		Description: "Achieve work-life integration and personal fulfillment",
		Specialties: []string{"Work-life balance", "Stress management", "Personal goals", "Wellness"},
	},
	"empathear": {
		Name:        "Arjun",
		Title:       "EmpathEAR Coach",
		Description: "Your empathetic listening companion for emotional support",
		Specialties: []string{"Emotional support", "Active listening", "Stress relief", "Mental wellness"},
	},
}

// IsValidCoachType reports whether the coach type is known.
func IsValidCoachType(coachType string) bool {
	_, ok := Coaches[coachType]
	return ok
}

// UserProfile carries the onboarding answers that personalise responses.
type UserProfile struct {
	CurrentRole      string
	Industry         string
	CareerStage      string
	FiveYearGoal     string
	BiggestChallenge string
	WorkEnvironment  string
}

// CoachService produces in-character coach replies. Upstream failures never
// surface as errors; the user sees a friendly in-conversation fallback.
type CoachService struct {
	client *Client
	log    *zap.Logger
}

// NewCoachService builds a coach service on top of the Gemini client.
func NewCoachService(client *Client) *CoachService {
	return &CoachService{client: client, log: logger.WithModule("ai.coach")}
}

// GenerateResponse returns the coach's reply to the user's message.
func (s *CoachService) GenerateResponse(ctx context.Context, coachType, userMessage string, history []models.ChatMessage, profile *UserProfile) string {
	if strings.TrimSpace(userMessage) == "" {
		return "I'm here to help you. What would you like to discuss today?"
	}

	coach, ok := Coaches[coachType]
	if !ok {
		return "I'm sorry, I couldn't find that coach. Please try again."
	}

	text, err := s.client.GenerateContent(ctx, GenerateRequest{
		Model:           chatModel,
		System:          buildCoachPrompt(coach, history, profile),
		Prompt:          "User: " + userMessage,
		MaxOutputTokens: 500,
		Temperature:     0.7,
	})
	if err != nil {
		metrics.AIRequests.WithLabelValues("chat", "error").Inc()
		s.log.Warn("coach response failed", zap.String("coach", coachType), zap.Error(err))

		if !s.client.Configured() {
			return "I apologize, but I'm not properly configured right now. Please contact support to help resolve this issue. In the meantime, consider talking to a trusted colleague or mentor about your challenges."
		}
		return "I'm experiencing some technical difficulties right now. Please try again in a moment. In the meantime, take a deep breath - we'll work through this together."
	}

	metrics.AIRequests.WithLabelValues("chat", "ok").Inc()
	return text
}

func buildCoachPrompt(coach Coach, history []models.ChatMessage, profile *UserProfile) string {
	var specialties strings.Builder
	for _, specialty := range coach.Specialties {
		fmt.Fprintf(&specialties, "- %s\n", specialty)
	}

	profileContext := ""
	if profile != nil {
		profileContext = fmt.Sprintf(`
User Profile:
- Current Role: %s
- Industry: %s
- Career Stage: %s
- Five Year Goal: %s
- Biggest Challenge: %s
- Work Environment: %s
`,
			orNotSpecified(profile.CurrentRole),
			orNotSpecified(profile.Industry),
			orNotSpecified(profile.CareerStage),
			orNotSpecified(profile.FiveYearGoal),
			orNotSpecified(profile.BiggestChallenge),
			orNotSpecified(profile.WorkEnvironment),
		)
	}

	return fmt.Sprintf(`You are %s, %s

Key coaching areas you focus on:
%s
Context about your coaching style:
- You are warm, empathetic, and culturally sensitive to Indian workplace dynamics
- You provide practical, actionable advice that can be implemented immediately
- You ask thoughtful follow-up questions to understand the user's situation better
- You celebrate small wins and progress
- You keep responses concise (2-3 paragraphs max) and focused
- You use simple, everyday language - avoid jargon
- You acknowledge the unique challenges faced by Indian professionals
- You provide specific examples relevant to Indian work culture when appropriate

%s
Previous conversation context:
%s

Guidelines:
1. Stay in character as %s
2. Keep responses helpful, encouraging, and actionable
3. Ask one thoughtful follow-up question when appropriate
4. If the user seems stuck, offer 2-3 specific next steps
5. Acknowledge Indian cultural context when relevant (hierarchical organizations, family expectations, etc.)
6. Focus on practical solutions that work in Indian professional settings

Respond to the user's message in a natural, conversational way as their personal %s coach.`,
		coach.Name, coach.Description, specialties.String(), profileContext,
		formatHistory(history), coach.Name, coach.Name)
}

func formatHistory(history []models.ChatMessage) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "Coach"
		if msg.IsUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

func orNotSpecified(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Not specified"
	}
	return value
}
