// Package auth decodes the bearer token the CLI sends to the backend into
// the caller's identity.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)

// Context is the identity carried by a token.
type Context struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// HasRole reports whether the context carries role, ignoring case.
func (c Context) HasRole(role string) bool {
	return slices.ContainsFunc(c.Roles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

// claims accepts the claim names the backend has used over time.
type claims struct {
	jwt.RegisteredClaims

	UserID string `json:"userId,omitempty"`
	ID     string `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   any    `json:"role,omitempty"`
	Roles  any    `json:"roles,omitempty"`
}

func (c claims) context() Context {
	out := Context{Email: c.Email}

	for _, id := range []string{c.UserID, c.ID, c.Subject} {
		if id = strings.TrimSpace(id); id != "" {
			out.UserID = id

			break
		}
	}

	out.Roles = append(roleList(c.Role), roleList(c.Roles)...)

	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}

	return out
}

func roleList(v any) []string {
	switch r := v.(type) {
	case string:
		if r = strings.TrimSpace(r); r != "" {
			return []string{r}
		}
	case []any:
		var out []string

		for _, item := range r {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}

		return out
	}

	return nil
}

// Service decodes tokens. With a Secret the HS256 signature is verified;
// without one the claims are read as-is, which is only useful for display.
type Service struct {
	Secret []byte
	Now    func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

// Decode parses token and returns its identity. A "Bearer " prefix is
// stripped.
func (s Service) Decode(token string) (Context, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

	if token == "" {
		return Context{}, ErrTokenMissing
	}

	var c claims

	if len(s.Secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
			return Context{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		}

		if c.ExpiresAt != nil && !s.now().Before(c.ExpiresAt.Time) {
			return Context{}, ErrTokenExpired
		}
	} else {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.now),
		)

		_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
			return s.Secret, nil
		})
		if err != nil {
			return Context{}, classify(err)
		}
	}

	ctx := c.context()
	if ctx.UserID == "" {
		return Context{}, fmt.Errorf("%w: no user id claim", ErrTokenInvalid)
	}

	return ctx, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
}

// Sign issues an HS256 token for ctx. The CLI uses it for local testing
// against a backend that shares the secret.
func (s Service) Sign(ctx Context) (string, error) {
	if len(s.Secret) == 0 {
		return "", fmt.Errorf("%w: no secret configured", ErrTokenInvalid)
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  ctx.UserID,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
		UserID: ctx.UserID,
		Email:  ctx.Email,
	}

	if len(ctx.Roles) > 0 {
		roles := make([]any, len(ctx.Roles))
		for i, r := range ctx.Roles {
			roles[i] = r
		}

		c.Roles = roles
	}

	if !ctx.ExpiresAt.IsZero() {
		c.ExpiresAt = jwt.NewNumericDate(ctx.ExpiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
