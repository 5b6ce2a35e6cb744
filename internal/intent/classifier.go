// Package intent routes non-command messages to handlers by classified intent.
package intent

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// Label names an intent.
type Label string

const (
	Greeting Label = "greeting"
	Farewell Label = "farewell"
	Question Label = "question"
	Command  Label = "command"
	Other    Label = "other"
)

// Result is a classification. Confidence is informational.
type Result struct {
	Intent     Label
	Confidence float64
}

// Classifier labels free text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Result, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// Fallback classifies with Primary and retries with Secondary when Primary
// fails.
type Fallback struct {
	Primary   Classifier
	Secondary Classifier
	Log       *slog.Logger
}

func (f Fallback) Classify(ctx context.Context, text string) (Result, error) {
	res, err := f.Primary.Classify(ctx, text)
	if err == nil {
		return res, nil
	}
	if f.Log != nil {
		f.Log.Warn("Classifier failed, using fallback", "error", err)
	}
	return f.Secondary.Classify(ctx, text)
}

var (
	greetingWords = []string{
		"hi", "hello", "hey", "hola", "halo", "hai", "helo", "yo",
		"assalamualaikum", "pagi", "siang", "sore", "malam",
	}
	greetingPhrases = []string{"good morning", "good afternoon", "good evening", "selamat pagi", "selamat siang", "selamat malam"}
	farewellWords   = []string{"bye", "goodbye", "dadah", "bye-bye", "cya"}
	farewellPhrases = []string{"see you", "good night", "sampai jumpa", "selamat tidur", "talk later"}
	questionWords   = []string{
		"what", "why", "how", "who", "when", "where", "which", "can", "is", "are", "do", "does",
		"apa", "kenapa", "mengapa", "bagaimana", "gimana", "siapa", "kapan", "dimana", "berapa",
	}
)

// RuleClassifier is a keyword classifier. IsCommand, when set, labels text
// whose first word is a registered command token as Command.
type RuleClassifier struct {
	IsCommand func(token string) bool
}

func (c RuleClassifier) Classify(_ context.Context, text string) (Result, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Result{Intent: Other, Confidence: 1}, nil
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	if len(words) == 0 {
		return Result{Intent: Other, Confidence: 0.5}, nil
	}
	first := words[0]

	switch {
	case c.IsCommand != nil && len(words) <= 3 && c.IsCommand(first):
		return Result{Intent: Command, Confidence: 0.9}, nil
	case containsWord(greetingWords, first) || hasPhrase(lower, greetingPhrases):
		return Result{Intent: Greeting, Confidence: 0.8}, nil
	case containsWord(farewellWords, first) || hasPhrase(lower, farewellPhrases):
		return Result{Intent: Farewell, Confidence: 0.8}, nil
	case strings.HasSuffix(lower, "?"):
		return Result{Intent: Question, Confidence: 0.9}, nil
	case containsWord(questionWords, first) && len(words) > 1:
		return Result{Intent: Question, Confidence: 0.6}, nil
	}
	return Result{Intent: Other, Confidence: 0.5}, nil
}

func containsWord(list []string, w string) bool {
	for _, s := range list {
		if s == w {
			return true
		}
	}
	return false
}

func hasPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
