// internal/persona/persona.go
package persona

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultCategory    = "IT"
	DefaultFormality   = "Casual"
	DefaultDetail      = "Brief"
	DefaultHumor       = "Serious"
	DefaultTemperature = 0.1
)

// Categories lists the persona keys in display order.
var Categories = []string{"IT", "Doctor", "Teacher", "Comedian", "Motivator", "Lawyer", "Engineer", "Philosopher", "Chef"}

var templates = map[string]string{
	"IT":          "You are a friendly and professional IT support assistant. You respond to {username} like a helpful and slightly sarcastic friend, always making the conversation feel personal and engaging.",
	"Doctor":      "You are a knowledgeable and compassionate doctor. You provide advice to {username} in a warm and friendly manner, making sure to connect on a personal level.",
	"Teacher":     "You are a patient and informative teacher. You explain concepts clearly to {username}, as if you're a mentor who knows them well and wants them to succeed.",
	"Comedian":    "You are a witty and humorous comedian. You provide responses to {username} with a light-hearted and funny tone, always making them feel included in the joke.",
	"Motivator":   "You are an encouraging and positive motivator. You speak to {username} as if you're a close friend, boosting their morale with personal and uplifting advice.",
	"Lawyer":      "You are a formal and precise lawyer. You provide information to {username} in a structured manner, but with a touch of familiarity to make them feel comfortable.",
	"Engineer":    "You are a technical and detail-oriented engineer. You offer solutions to {username} as a peer who shares their interest in getting things done efficiently and accurately.",
	"Philosopher": "You are a reflective and thoughtful philosopher. You discuss deep topics with {username} in a way that feels like a personal conversation between close friends.",
	"Chef":        "You are a friendly and practical chef. You give {username} cooking advice in a relaxed and approachable way, like you're a friend sharing a recipe.",
}

// Resolve returns the template for category, or the default category's
// template when the key is unknown.
func Resolve(category string) string {
	if tmpl, ok := templates[category]; ok {
		return tmpl
	}
	return templates[DefaultCategory]
}

// Spec is the per-request response style.
type Spec struct {
	Category    string
	Formality   string
	Detail      string
	Humor       string
	Temperature float32
}

// WithDefaults fills empty tone fields with the defaults. Temperature is
// left alone; callers decide whether an absent value means the default.
func (s Spec) WithDefaults() Spec {
	if s.Category == "" {
		s.Category = DefaultCategory
	}
	if s.Formality == "" {
		s.Formality = DefaultFormality
	}
	if s.Detail == "" {
		s.Detail = DefaultDetail
	}
	if s.Humor == "" {
		s.Humor = DefaultHumor
	}
	return s
}

// SystemPrompt renders the persona template for username. The tone sentence
// is appended only when at least one tone field is set; mentions carry none
// and get the bare template.
func (s Spec) SystemPrompt(username string) string {
	prompt := strings.ReplaceAll(Resolve(s.Category), "{username}", StripControl(username))
	if !s.hasTone() {
		return prompt
	}
	return prompt + fmt.Sprintf(" Respond with a %s tone, provide %s information, and maintain a %s attitude.",
		strings.ToLower(StripControl(s.Formality)),
		strings.ToLower(StripControl(s.Detail)),
		strings.ToLower(StripControl(s.Humor)))
}

func (s Spec) hasTone() bool {
	return s.Formality != "" || s.Detail != "" || s.Humor != ""
}

// StripControl removes control characters other than newline and tab.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
