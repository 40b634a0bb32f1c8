package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/logger"
)

// Chain tries verifiers in order. The first Accept wins; an error from one
// verifier is logged and counts as Reject for that verifier only.
type Chain struct {
	verifiers []Verifier
}

// NewChain builds a chain, skipping nil entries. An empty chain rejects
// everything.
func NewChain(verifiers ...Verifier) *Chain {
	c := &Chain{}
	for _, v := range verifiers {
		if v != nil {
			c.verifiers = append(c.verifiers, v)
		}
	}
	return c
}

// Len returns the number of verifiers in the chain.
func (c *Chain) Len() int { return len(c.verifiers) }

func (c *Chain) Name() string {
	names := make([]string, len(c.verifiers))
	for i, v := range c.verifiers {
		names[i] = v.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *Chain) VerifyPassword(ctx context.Context, user, password string) (Result, error) {
	return c.run(ctx, user, MethodPassword, func(v Verifier) (Result, error) {
		return v.VerifyPassword(ctx, user, password)
	})
}

func (c *Chain) VerifyPublicKey(ctx context.Context, user string, key ssh.PublicKey) (Result, error) {
	return c.run(ctx, user, MethodPublicKey, func(v Verifier) (Result, error) {
		return v.VerifyPublicKey(ctx, user, key)
	})
}

func (c *Chain) run(ctx context.Context, user, method string, verify func(Verifier) (Result, error)) (Result, error) {
	for _, v := range c.verifiers {
		res, err := verify(v)
		if err != nil {
			logger.WarnCtx(ctx, "Verifier failed",
				logger.KeyVerifier, v.Name(), logger.Auth(method), logger.Username(user), logger.Err(err))
			continue
		}
		if res == Accept {
			logger.DebugCtx(ctx, "Credential accepted",
				logger.KeyVerifier, v.Name(), logger.Auth(method), logger.Username(user))
			return Accept, nil
		}
	}
	return Reject, nil
}
