// Package codegen mints the short public codes that address batches.
//
// Codes are drawn uniformly from an alphanumeric alphabet using crypto/rand
// and every candidate is checked against the store before it is handed out.
package codegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/dmitrijs2005/mediadrop/internal/common"
)

const (
	// Alphabet is the set of characters a code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// DefaultLength is the number of characters in a code.
	DefaultLength = 8
	// DefaultMaxAttempts bounds the collision retries of Generate.
	DefaultMaxAttempts = 10
)

// Checker reports whether a code is already taken.
type Checker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context, code string) (bool, error)

func (f CheckerFunc) CodeExists(ctx context.Context, code string) (bool, error) {
	return f(ctx, code)
}

// Generator produces codes of a fixed length.
type Generator struct {
	length      int
	maxAttempts int
	random      io.Reader
}

// Option customizes a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom replaces the entropy source (tests only).
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// New returns a Generator with DefaultLength and DefaultMaxAttempts.
func New(opts ...Option) *Generator {
	g := &Generator{
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Reader,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// MaxAttempts returns the collision retry bound.
func (g *Generator) MaxAttempts() int { return g.maxAttempts }

// Candidate draws one code without consulting any store.
func (g *Generator) Candidate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, g.length)
	for i := range b {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("random source: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}

// Generate returns a code that checker reports as free. After maxAttempts
// collisions it fails with common.ErrorExhaustedKeyspace.
func (g *Generator) Generate(ctx context.Context, checker Checker) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.Candidate()
		if err != nil {
			return "", err
		}
		taken, err := checker.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: no free code after %d attempts", common.ErrorExhaustedKeyspace, g.maxAttempts)
}
