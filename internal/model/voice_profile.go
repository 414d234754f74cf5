package model

import (
	"database/sql/driver"
	"time"

	"github.com/goccy/go-json"
)

const (
	maxVoiceExamples      = 5
	maxVoiceExampleLength = 240
)

type VoiceProfile struct {
	ID        uint64       `gorm:"primaryKey" json:"id"`
	UserID    uint64       `gorm:"not null;uniqueIndex:idx_voice_user" json:"user_id"`
	Rules     VoiceSummary `gorm:"type:json;not null" json:"rules"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (VoiceProfile) TableName() string {
	return "voice_profiles"
}

// VoiceSummary structured style constraints that condition generation
type VoiceSummary struct {
	Version         int            `json:"version"`
	Model           string         `json:"model"`
	Tone            string         `json:"tone"`
	Cadence         VoiceCadence   `json:"cadence"`
	Emoji           VoiceEmoji     `json:"emoji"`
	Hashtags        VoiceHashtags  `json:"hashtags"`
	Lexicon         VoiceLexicon   `json:"lexicon"`
	Structure       []string       `json:"structure"`
	Topics          []string       `json:"topics"`
	EngagementHints []string       `json:"engagementHints"`
	Safety          []string       `json:"safety"`
	Examples        []VoiceExample `json:"examples" validate:"max=5,dive"`
}

type VoiceCadence struct {
	AvgChars     int     `json:"avgChars" validate:"gte=0"`
	Sentences    string  `json:"sentences" validate:"omitempty,oneof=one two"`
	QuestionRate float64 `json:"questionRate" validate:"gte=0,lte=1"`
	ExclaimRate  float64 `json:"exclaimRate" validate:"gte=0,lte=1"`
}

type VoiceEmoji struct {
	Allowed     bool   `json:"allowed"`
	MaxPerTweet int    `json:"maxPerTweet" validate:"gte=0"`
	Position    string `json:"position,omitempty" validate:"omitempty,oneof=end inline none"`
}

type VoiceHashtags struct {
	Frequency string   `json:"frequency" validate:"omitempty,oneof=rare sometimes often"`
	Position  string   `json:"position,omitempty" validate:"omitempty,oneof=end inline"`
	Whitelist []string `json:"whitelist,omitempty"`
}

type VoiceLexicon struct {
	Prefer []string `json:"prefer"`
	Avoid  []string `json:"avoid"`
	Hedges []string `json:"hedges,omitempty"`
}

type VoiceExample struct {
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// Normalize caps the examples to 5 entries of at most 240 characters
func (v VoiceSummary) Normalize() VoiceSummary {
	examples := v.Examples
	if len(examples) > maxVoiceExamples {
		examples = examples[:maxVoiceExamples]
	}
	clamped := make([]VoiceExample, 0, len(examples))
	for _, e := range examples {
		clamped = append(clamped, VoiceExample{
			Text: clampRunes(e.Text, maxVoiceExampleLength),
			Note: clampRunes(e.Note, maxVoiceExampleLength),
		})
	}
	v.Examples = clamped
	return v
}

func clampRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (v VoiceSummary) Value() (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *VoiceSummary) Scan(value interface{}) error {
	return scanJSON(value, v)
}
