package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/message"
)

func resolved(msg message.Message, f message.Facts) *message.Context {
	mc := message.NewContext(msg, nil)
	mc.Resolve(f)
	return mc
}

func TestChainStopsAtFirstVeto(t *testing.T) {
	t.Parallel()

	outcomes := []func() (bool, error){
		func() (bool, error) { return false, nil },
		func() (bool, error) { return false, errors.New("boom") },
		func() (bool, error) { panic("kaboom") },
	}

	for _, n := range []int{1, 3, 5} {
		for k := range n {
			for oi, veto := range outcomes {
				t.Run(fmt.Sprintf("n=%d k=%d outcome=%d", n, k, oi), func(t *testing.T) {
					t.Parallel()

					calls := make([]int, n)
					guards := make([]Guard, n)
					for i := range n {
						guards[i] = Guard{Name: fmt.Sprintf("g%d", i), Check: func(context.Context, *message.Context) (bool, error) {
							calls[i]++
							if i == k {
								return veto()
							}
							return true, nil
						}}
					}

					ok := NewChain(nil, guards...).Run(context.Background(), resolved(message.Message{}, message.Facts{}))
					assert.False(t, ok)
					for i := range n {
						if i <= k {
							assert.Equal(t, 1, calls[i], "guard %d", i)
						} else {
							assert.Zero(t, calls[i], "guard %d ran after veto", i)
						}
					}
				})
			}
		}
	}
}

func TestChainAllPass(t *testing.T) {
	t.Parallel()

	var order []string
	mk := func(name string) Guard {
		return Guard{Name: name, Check: func(context.Context, *message.Context) (bool, error) {
			order = append(order, name)
			return true, nil
		}}
	}
	c := NewChain(nil, mk("a"), mk("b"), mk("c"))
	assert.True(t, c.Run(context.Background(), resolved(message.Message{}, message.Facts{})))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
}

func TestChainRequiresResolvedFacts(t *testing.T) {
	t.Parallel()

	called := false
	c := NewChain(nil, Guard{Name: "a", Check: func(context.Context, *message.Context) (bool, error) {
		called = true
		return true, nil
	}})
	assert.False(t, c.Run(context.Background(), message.NewContext(message.Message{}, nil)))
	assert.False(t, called)
}

func TestCooldown(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cd := NewCooldown(3*time.Second, time.Minute, 100).WithClock(func() time.Time { return now })

	require.True(t, cd.Allow("u1"))
	now = now.Add(time.Second)
	assert.False(t, cd.Allow("u1"), "second request inside the window")
	assert.True(t, cd.Allow("u2"), "other senders are independent")
	assert.Greater(t, cd.Remaining("u1"), time.Duration(0))

	now = now.Add(2 * time.Second)
	assert.True(t, cd.Allow("u1"), "window elapsed")
}

func TestCooldownDisabled(t *testing.T) {
	t.Parallel()

	cd := NewCooldown(0, time.Minute, 10)
	for range 5 {
		assert.True(t, cd.Allow("u"))
	}
	assert.Zero(t, cd.Len())
}

func TestCooldownEviction(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cd := NewCooldown(time.Second, time.Minute, 3).WithClock(func() time.Time { return now })

	for _, k := range []string{"a", "b", "c"} {
		cd.Allow(k)
		now = now.Add(time.Second)
	}
	require.Equal(t, 3, cd.Len())

	cd.Allow("d")
	assert.Equal(t, 3, cd.Len(), "cap holds")
	cd.mu.Lock()
	_, hasA := cd.entries["a"]
	cd.mu.Unlock()
	assert.False(t, hasA, "least recently seen evicted")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 3, cd.Sweep())
	assert.Zero(t, cd.Len())
}

func TestInWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour, start, end int
		want             bool
	}{
		{0, 0, 6, true},
		{5, 0, 6, true},
		{6, 0, 6, false},
		{23, 22, 6, true},
		{3, 22, 6, true},
		{12, 22, 6, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InWindow(tt.hour, tt.start, tt.end), "%+v", tt)
	}
}

func TestRuleAnalyzer(t *testing.T) {
	t.Parallel()

	a := NewRuleAnalyzer(100)
	ctx := context.Background()

	v, err := a.Analyze(ctx, message.Message{Text: "hello"})
	require.NoError(t, err)
	assert.False(t, v.Malicious)

	v, err = a.Analyze(ctx, message.Message{Text: strings.Repeat("a", 101)})
	require.NoError(t, err)
	assert.True(t, v.Malicious)

	v, err = a.Analyze(ctx, message.Message{Text: strings.Repeat("\u202e", 60) + "hi"})
	require.NoError(t, err)
	assert.True(t, v.Malicious)
}
