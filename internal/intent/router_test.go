package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/message/messagetest"
)

func TestRuleClassifier(t *testing.T) {
	t.Parallel()

	c := RuleClassifier{IsCommand: func(tok string) bool { return tok == "ping" || tok == "menu" }}
	tests := []struct {
		text string
		want Label
	}{
		{"hello there", Greeting},
		{"Hi!", Greeting},
		{"good morning everyone", Greeting},
		{"bye", Farewell},
		{"see you tomorrow", Farewell},
		{"is the bot online?", Question},
		{"how does this work", Question},
		{"ping", Command},
		{"menu please", Command},
		{"the weather is nice", Other},
		{"", Other},
		{"🙂", Other},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			res, err := c.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Intent)
		})
	}
}

func newContext(text string) (*message.Context, *messagetest.Transport) {
	tr := messagetest.New("bot")
	mc := message.NewContext(message.Message{ChatID: "628@s.whatsapp.net", SenderID: "628@s.whatsapp.net", PushName: "Ana", Text: text}, tr)
	return mc, tr
}

func TestRouterDispatchesByLabel(t *testing.T) {
	t.Parallel()

	r := NewRouter(RuleClassifier{}, nil)
	var got []string
	r.Handle(Greeting, func(context.Context, *message.Context, Result) error {
		got = append(got, "greeting")
		return nil
	})
	r.SetDefault(func(context.Context, *message.Context, Result) error {
		got = append(got, "default")
		return nil
	})

	mc, _ := newContext("hello there")
	require.NoError(t, r.Route(context.Background(), mc))
	mc, _ = newContext("bye")
	require.NoError(t, r.Route(context.Background(), mc))
	assert.Equal(t, []string{"greeting", "default"}, got)
}

func TestRouterUnknownLabelGoesToDefault(t *testing.T) {
	t.Parallel()

	r := NewRouter(ClassifierFunc(func(context.Context, string) (Result, error) {
		return Result{Intent: "weather", Confidence: 0.99}, nil
	}), nil)
	called := false
	r.SetDefault(func(_ context.Context, _ *message.Context, res Result) error {
		called = true
		assert.Equal(t, Label("weather"), res.Intent)
		return nil
	})
	mc, _ := newContext("will it rain")
	require.NoError(t, r.Route(context.Background(), mc))
	assert.True(t, called)
}

func TestRouterClassifierError(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota")
	r := NewRouter(ClassifierFunc(func(context.Context, string) (Result, error) { return Result{}, boom }), nil)
	r.SetDefault(func(context.Context, *message.Context, Result) error {
		t.Fatal("handler must not run")
		return nil
	})
	mc, _ := newContext("x")
	assert.ErrorIs(t, r.Route(context.Background(), mc), boom)
}

func TestStandardHandlers(t *testing.T) {
	t.Parallel()

	reg := command.NewRegistry()
	require.NoError(t, reg.Register(command.Descriptor{Name: "ping", Handler: func(context.Context, *message.Context) error { return nil }}))
	r := NewRouter(RuleClassifier{IsCommand: func(tok string) bool { _, ok := reg.Resolve(tok); return ok }}, nil)
	Standard(r, Replies{
		Greeting:   "hello %s",
		Farewell:   "bye %s",
		Question:   "good question",
		Unknown:    "huh",
		Suggestion: "did you mean %s%s?",
	}, command.NewMatcher(reg, 2), ".")

	tests := []struct {
		text string
		want string
	}{
		{"hello there", "hello Ana"},
		{"bye", "bye Ana"},
		{"what is this?", "good question"},
		{"ping", "did you mean .ping?"},
		{"pign", "did you mean .ping?"},
		{"lorem ipsum", "huh"},
	}
	for _, tt := range tests {
		mc, tr := newContext(tt.text)
		require.NoError(t, r.Route(context.Background(), mc), tt.text)
		assert.Equal(t, []string{tt.want}, tr.Texts(), tt.text)
	}
}

func TestFallbackClassifier(t *testing.T) {
	t.Parallel()

	down := ClassifierFunc(func(context.Context, string) (Result, error) {
		return Result{}, errors.New("quota exceeded")
	})
	up := ClassifierFunc(func(context.Context, string) (Result, error) {
		return Result{Intent: Question, Confidence: 0.7}, nil
	})

	res, err := Fallback{Primary: down, Secondary: RuleClassifier{}}.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Greeting, res.Intent)

	res, err = Fallback{Primary: up, Secondary: down}.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Question, res.Intent, "secondary is not consulted when primary answers")

	_, err = Fallback{Primary: down, Secondary: down}.Classify(context.Background(), "hello")
	assert.Error(t, err)
}
