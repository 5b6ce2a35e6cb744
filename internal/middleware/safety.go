package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/edgard/whatsdex/internal/message"
)

// Verdict is a content safety decision.
type Verdict struct {
	Malicious bool
	Reason    string
}

// SafetyAnalyzer inspects a message for malicious content.
type SafetyAnalyzer interface {
	Analyze(ctx context.Context, msg message.Message) (Verdict, error)
}

// FallbackAnalyzer consults Secondary when Primary errors.
type FallbackAnalyzer struct {
	Primary   SafetyAnalyzer
	Secondary SafetyAnalyzer
	Log       *slog.Logger
}

func (f FallbackAnalyzer) Analyze(ctx context.Context, msg message.Message) (Verdict, error) {
	v, err := f.Primary.Analyze(ctx, msg)
	if err == nil {
		return v, nil
	}
	if f.Log != nil {
		f.Log.Warn("Safety analyzer failed, using fallback", "error", err)
	}
	return f.Secondary.Analyze(ctx, msg)
}

// RuleAnalyzer flags the crash texts ("virtex") that circulate on WhatsApp:
// oversized bodies and floods of invisible or direction-override runes.
type RuleAnalyzer struct {
	MaxLength int
	// MaxInvisible is the number of format runes tolerated in one message.
	MaxInvisible int
}

// NewRuleAnalyzer returns an analyzer with the given length limit.
func NewRuleAnalyzer(maxLength int) *RuleAnalyzer {
	return &RuleAnalyzer{MaxLength: maxLength, MaxInvisible: 50}
}

func (a *RuleAnalyzer) Analyze(_ context.Context, msg message.Message) (Verdict, error) {
	if a.MaxLength > 0 && utf8.RuneCountInString(msg.Text) > a.MaxLength {
		return Verdict{Malicious: true, Reason: fmt.Sprintf("message longer than %d characters", a.MaxLength)}, nil
	}

	invisible := 0
	for _, r := range msg.Text {
		if isInvisible(r) {
			invisible++
		}
	}
	if a.MaxInvisible > 0 && invisible > a.MaxInvisible {
		return Verdict{Malicious: true, Reason: fmt.Sprintf("%d invisible control characters", invisible)}, nil
	}
	return Verdict{}, nil
}

func isInvisible(r rune) bool {
	switch {
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
		return true
	case r == '\n' || r == '\t' || r == '\r':
		return false
	}
	return unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r)
}
