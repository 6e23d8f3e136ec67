// Package resolve walks an ordered chain of configuration sources until one
// yields a value.
//
// Order encodes precedence: explicit switch > positional argument > session
// stash > persisted property > secret store > literal default. The first
// non-empty result terminates resolution immediately, so sources with side
// effects are never consulted once an earlier source has produced a value.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
	"github.com/CJohnsonADAH/adpn-cli/internal/props"
	"github.com/CJohnsonADAH/adpn-cli/internal/secrets"
	"github.com/CJohnsonADAH/adpn-cli/internal/stash"
)

// Env carries the collaborators a source chain may consult.
type Env struct {
	Props   *props.Store
	Stash   *stash.Session
	Secrets *secrets.Manager
	Logger  *slog.Logger
}

// Source is one tagged step in a chain. Resolve returns NotFound when the
// source has nothing; any other error aborts the whole chain.
type Source interface {
	Describe() string
	Resolve(ctx context.Context, env *Env) (string, error)
}

// Resolve tries sources strictly in order and returns the first non-empty
// value. An exhausted chain is NotFound; the caller decides whether that is
// fatal.
func Resolve(ctx context.Context, env *Env, chain []Source) (string, error) {
	logger := logging.NewComponentLogger(envLogger(env), "resolve")

	for _, source := range chain {
		value, err := source.Resolve(ctx, env)
		if err != nil {
			if errors.Is(err, adpnerr.ErrNotFound) {
				continue
			}
			return "", err
		}
		if value == "" {
			continue
		}
		logger.Debug("resolved value", logging.String("source", source.Describe()))
		return value, nil
	}
	return "", adpnerr.Wrap(adpnerr.ErrNotFound, "resolve", "chain", "all sources empty", nil)
}

// Literal is an already-supplied value, typically an explicit switch.
type Literal struct {
	Name  string
	Value string
}

func (l Literal) Describe() string { return "switch " + l.Name }

func (l Literal) Resolve(ctx context.Context, env *Env) (string, error) {
	if l.Value == "" {
		return "", adpnerr.ErrNotFound
	}
	return l.Value, nil
}

// Positional falls back to a positional command-line argument.
type Positional struct {
	Args  []string
	Index int
}

func (p Positional) Describe() string { return fmt.Sprintf("argument %d", p.Index) }

func (p Positional) Resolve(ctx context.Context, env *Env) (string, error) {
	if p.Index < 0 || p.Index >= len(p.Args) || p.Args[p.Index] == "" {
		return "", adpnerr.ErrNotFound
	}
	return p.Args[p.Index], nil
}

// StashValue reads a key from the current session stash. Resolution is
// side-effect-free.
type StashValue struct {
	Key string
}

func (s StashValue) Describe() string { return "stash " + s.Key }

func (s StashValue) Resolve(ctx context.Context, env *Env) (string, error) {
	if env == nil || env.Stash == nil {
		return "", adpnerr.ErrNotFound
	}
	return env.Stash.Get(s.Key)
}

// Property reads a dot-path key from the persisted property file. When the
// key is absent and Fallback is set, resolution pipes through the fallback
// source.
type Property struct {
	Key      string
	Fallback Source
}

func (p Property) Describe() string { return "property " + p.Key }

func (p Property) Resolve(ctx context.Context, env *Env) (string, error) {
	if env != nil && env.Props != nil {
		value, err := env.Props.Get(p.Key)
		if err == nil && value != "" {
			return value, nil
		}
		if err != nil && !errors.Is(err, adpnerr.ErrNotFound) {
			return "", err
		}
	}
	if p.Fallback != nil {
		return p.Fallback.Resolve(ctx, env)
	}
	return "", adpnerr.ErrNotFound
}

// Secret fetches from the secret store by URI. A successful fetch is cached
// into the session stash under the source name, tagged cached:1, so repeated
// resolutions within the session skip the prompt. Refetching is idempotent
// per name; a duplicate concurrent write is last-writer-wins.
type Secret struct {
	Name string
	URI  string
}

func (s Secret) Describe() string { return "secret " + s.Name }

func (s Secret) Resolve(ctx context.Context, env *Env) (string, error) {
	if env == nil || env.Secrets == nil {
		return "", adpnerr.ErrNotFound
	}
	value, err := env.Secrets.Lookup(ctx, s.URI)
	if err != nil {
		return "", err
	}
	if env.Stash != nil && s.Name != "" {
		fragment, err := json.Marshal(map[string]string{s.Name: value, "cached": "1"})
		if err == nil {
			if putErr := env.Stash.Put(string(fragment)); putErr != nil {
				logging.NewComponentLogger(envLogger(env), "resolve").
					Warn("could not cache secret into stash", logging.Error(putErr))
			}
		}
	}
	return value, nil
}

// Default is a fixed literal fallback at the end of a chain.
type Default struct {
	Value string
}

func (d Default) Describe() string { return "default" }

func (d Default) Resolve(ctx context.Context, env *Env) (string, error) {
	if d.Value == "" {
		return "", adpnerr.ErrNotFound
	}
	return d.Value, nil
}

func envLogger(env *Env) *slog.Logger {
	if env == nil {
		return nil
	}
	return env.Logger
}
