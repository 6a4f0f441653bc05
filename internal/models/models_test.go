package models

import (
	"testing"
	"time"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"email_verification_token", func() *BaseModel {
			v := &EmailVerificationToken{}
			return &v.BaseModel
		}},
		{"password_reset_token", func() *BaseModel {
			p := &PasswordResetToken{}
			return &p.BaseModel
		}},
		{"mfa_secret", func() *BaseModel {
			m := &MFASecret{}
			return &m.BaseModel
		}},
		{"coaching_session", func() *BaseModel {
			s := &CoachingSession{}
			return &s.BaseModel
		}},
		{"saved_advice", func() *BaseModel {
			a := &SavedAdvice{}
			return &a.BaseModel
		}},
		{"contact_message", func() *BaseModel {
			c := &ContactMessage{}
			return &c.BaseModel
		}},
		{"email_log", func() *BaseModel {
			l := &EmailLog{}
			return &l.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			if err := model.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if model.ID == "" {
				t.Fatal("expected ID to be generated")
			}
		})
	}
}

func TestUserLockState(t *testing.T) {
	now := time.Now()
	user := &User{}
	if user.IsLocked(now) {
		t.Fatal("user without lockout should not be locked")
	}

	until := now.Add(30 * time.Minute)
	user.LockedUntil = &until
	if !user.IsLocked(now) {
		t.Fatal("user inside lockout window should be locked")
	}
	if user.IsLocked(until) {
		t.Fatal("lockout should end exactly at the boundary")
	}
}

func TestSessionExpiryBoundary(t *testing.T) {
	now := time.Now()
	session := &UserSession{ExpiresAt: now.Add(time.Hour)}
	if session.IsExpired(now) {
		t.Fatal("future expiry should not be expired")
	}
	if !session.IsExpired(session.ExpiresAt) {
		t.Fatal("session should be expired at the boundary")
	}
}

func TestCoachingSessionTranscriptRoundTrip(t *testing.T) {
	session := &CoachingSession{}

	msgs, err := session.Transcript()
	if err != nil {
		t.Fatalf("empty transcript: %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected nil transcript, got %v", msgs)
	}

	want := []ChatMessage{
		{ID: "m1", Content: "I keep getting passed over for promotion", IsUser: true, Timestamp: time.Now().UTC().Truncate(time.Second)},
		{ID: "m2", Content: "Tell me more about your last review cycle.", IsUser: false, Timestamp: time.Now().UTC().Truncate(time.Second)},
	}
	if err := session.SetTranscript(want); err != nil {
		t.Fatalf("set transcript: %v", err)
	}

	got, err := session.Transcript()
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || !got[0].IsUser || got[1].IsUser {
		t.Fatalf("unexpected transcript %v", got)
	}
}
