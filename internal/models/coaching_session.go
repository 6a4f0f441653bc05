package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ChatMessage is a single transcript entry inside a coaching session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

// CoachingSession is one conversation with a coach persona. The transcript
// is stored as a JSON column rather than a row per message.
type CoachingSession struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;not null;index" json:"userId"`
	CoachType string         `gorm:"not null;index" json:"coachType"`
	Messages  datatypes.JSON `json:"messages"`
	Summary   string         `json:"summary"`
	Hearted   bool           `gorm:"default:false" json:"hearted"`
}

// Transcript decodes the stored messages column.
func (s *CoachingSession) Transcript() ([]ChatMessage, error) {
	if len(s.Messages) == 0 {
		return nil, nil
	}
	var msgs []ChatMessage
	if err := json.Unmarshal(s.Messages, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SetTranscript encodes messages back into the JSON column.
func (s *CoachingSession) SetTranscript(msgs []ChatMessage) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	s.Messages = datatypes.JSON(raw)
	return nil
}
