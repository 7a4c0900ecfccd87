package auth

import (
	"context"
	"errors"
)

// TokenValidator validates a bearer token. The API middleware depends on this
// rather than on TokenManager so deployments can rotate secrets by chaining
// an old and a new manager.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	Name() string
}

// ErrNoValidatorMatched is returned when no validator can validate the token
var ErrNoValidatorMatched = errors.New("no validator could validate the token")

// CompositeTokenValidator tries each validator in order.
type CompositeTokenValidator struct {
	validators []TokenValidator
}

// NewCompositeTokenValidator chains validators.
func NewCompositeTokenValidator(validators ...TokenValidator) *CompositeTokenValidator {
	return &CompositeTokenValidator{validators: validators}
}

// ValidateToken returns the first success, or the last error.
func (c *CompositeTokenValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if len(c.validators) == 0 {
		return nil, ErrNoValidatorMatched
	}

	var lastErr error
	for _, v := range c.validators {
		claims, err := v.ValidateToken(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Name returns "composite".
func (c *CompositeTokenValidator) Name() string {
	return "composite"
}
