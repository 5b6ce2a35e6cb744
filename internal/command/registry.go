// Package command holds the registry of invocable commands and the fuzzy
// matcher used for "did you mean" suggestions.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/permission"
)

// HandlerFunc runs a resolved, approved command.
type HandlerFunc func(ctx context.Context, mc *message.Context) error

// Descriptor is the registered metadata and handler for one command.
type Descriptor struct {
	Name        string
	Aliases     []string
	Category    string
	Description string
	Usage       string
	Permissions permission.Requirement
	Handler     HandlerFunc
	// SuppressErrorReply keeps handler failures out of the chat.
	SuppressErrorReply bool
}

// DuplicateNameError is returned when a name or alias is already taken.
type DuplicateNameError struct {
	Token    string
	Existing string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("command token %q already registered by %q", e.Token, e.Existing)
}

// ErrInvalidRequirement wraps descriptors whose shape cannot be registered.
var ErrInvalidRequirement = errors.New("invalid command descriptor")

// Normalizer maps a raw token onto its lookup key.
type Normalizer func(string) string

// LowerCase is the default normalizer.
func LowerCase(s string) string { return strings.ToLower(s) }

// Exact keeps tokens as typed.
func Exact(s string) string { return s }

type entry struct {
	token string
	desc  *Descriptor
}

// Registry maps names and aliases to descriptors. It is safe for concurrent
// use; in practice it is filled at startup and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	normalize Normalizer
	index     map[string]*Descriptor
	// order keeps every token in registration order for suggestion ties.
	order []entry
	names []*Descriptor
}

// Option configures a Registry.
type Option func(*Registry)

// WithNormalizer replaces the default lower-casing normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(r *Registry) { r.normalize = n }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		normalize: LowerCase,
		index:     make(map[string]*Descriptor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds d. Collisions are checked for every token before anything is
// inserted, so a failed registration leaves the registry untouched.
func (r *Registry) Register(d Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRequirement)
	}
	if d.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidRequirement, d.Name)
	}
	if err := d.Permissions.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRequirement, d.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tokens := make([]string, 0, 1+len(d.Aliases))
	seen := make(map[string]bool, cap(tokens))
	for _, raw := range append([]string{d.Name}, d.Aliases...) {
		key := r.normalize(strings.TrimSpace(raw))
		if key == "" {
			return fmt.Errorf("%w: %s has an empty alias", ErrInvalidRequirement, d.Name)
		}
		if existing, ok := r.index[key]; ok {
			return &DuplicateNameError{Token: key, Existing: existing.Name}
		}
		if seen[key] {
			return &DuplicateNameError{Token: key, Existing: d.Name}
		}
		seen[key] = true
		tokens = append(tokens, key)
	}

	desc := d
	desc.Aliases = append([]string(nil), d.Aliases...)
	for _, key := range tokens {
		r.index[key] = &desc
		r.order = append(r.order, entry{token: key, desc: &desc})
	}
	r.names = append(r.names, &desc)
	return nil
}

// RegisterAll registers every descriptor and returns the first error.
func (r *Registry) RegisterAll(ds ...Descriptor) error {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the descriptor whose name or alias equals token.
func (r *Registry) Resolve(token string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.index[r.normalize(token)]
	return d, ok
}

// Tokens returns every known name and alias in registration order.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	for i, e := range r.order {
		out[i] = e.token
	}
	return out
}

// Commands returns every descriptor in registration order.
func (r *Registry) Commands() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Descriptor(nil), r.names...)
}

// Categories groups descriptors by category, with categories sorted.
func (r *Registry) Categories() ([]string, map[string][]*Descriptor) {
	byCat := make(map[string][]*Descriptor)
	for _, d := range r.Commands() {
		cat := d.Category
		if cat == "" {
			cat = "misc"
		}
		byCat[cat] = append(byCat[cat], d)
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, byCat
}

// Len returns the number of registered commands, not counting aliases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Normalize applies the registry's normalizer.
func (r *Registry) Normalize(token string) string {
	return r.normalize(token)
}
