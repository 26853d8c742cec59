package auth

import (
	"context"
	"fmt"
	"log/slog"
	"pairchat/contract"
	"pairchat/domain"
	"pairchat/errors"
	"time"
)

type IdentityLookup interface {
	GetUser(ctx context.Context, id domain.UserID) (domain.User, error)
}

// Authenticator resolves a bearer token to a known identity within a bounded window.
type Authenticator struct {
	verifier contract.IVerifier
	users    IdentityLookup
	timeout  time.Duration
	log      *slog.Logger
}

func NewAuthenticator(verifier contract.IVerifier, users IdentityLookup, timeout time.Duration, log *slog.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, users: users, timeout: timeout, log: log}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Identity, domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	credential, err := a.verifier.Verify(token)
	if err != nil {
		return domain.Identity{}, domain.Credential{}, err
	}
	user, err := a.users.GetUser(ctx, credential.UserID)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return domain.Identity{}, domain.Credential{}, errors.ErrUnknownIdentity
	case err != nil:
		a.log.Warn("Identity lookup failed", "user_id", credential.UserID, "error", err)
		return domain.Identity{}, domain.Credential{}, fmt.Errorf("%w: %w", errors.ErrAuthentication, err)
	}
	return user.Identity(), credential, nil
}
