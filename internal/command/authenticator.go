package command

import (
	"context"
	"errors"
	"time"

	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/mojagap/moja-node/shared/token"
	"github.com/mojagap/moja-node/shared/utils"
	"github.com/sirupsen/logrus"
)

// CredentialStore resolves the active user behind a login attempt together
// with its authorities. *query.UserQueryService satisfies it.
type CredentialStore interface {
	LoadUserByUsername(ctx context.Context, email string) (*models.UserDetails, error)
}

type Authentication struct {
	User        *models.AppUser
	Authorities []string
	Token       string
}

// Authenticator checks credentials and issues bearer tokens.
type Authenticator struct {
	store  CredentialStore
	secret []byte
	ttl    time.Duration
	logger *logrus.Logger
}

func NewAuthenticator(store CredentialStore, secret []byte, ttl time.Duration, logger *logrus.Logger) *Authenticator {
	return &Authenticator{store: store, secret: secret, ttl: ttl, logger: logger}
}

// credentials prefers the header pair when both values are present.
func credentials(cmd cqrs.LoginCommand) (string, string) {
	if cmd.HeaderEmail != "" && cmd.HeaderPassword != "" {
		return cmd.HeaderEmail, cmd.HeaderPassword
	}
	return cmd.Email, cmd.Password
}

func (a *Authenticator) Authenticate(ctx context.Context, cmd cqrs.LoginCommand) (*Authentication, error) {
	email, password := credentials(cmd)
	if email == "" || password == "" {
		return nil, apperr.NewInvalidCredentialsError(apperr.MsgInvalidCredentials)
	}

	details, err := a.store.LoadUserByUsername(ctx, email)
	if _, notFound := apperr.IsNotFoundError(err); notFound || errors.Is(err, repository.ErrNotFound) {
		a.logger.WithField("email", email).Warn("Login attempt for unknown or inactive user")
		return nil, apperr.NewInvalidCredentialsError(apperr.MsgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	user := details.User
	if !utils.CheckPassword(password, user.Password) {
		a.logger.WithField("user_id", user.ID).Warn("Login attempt with wrong password")
		return nil, apperr.NewInvalidCredentialsError(apperr.MsgInvalidCredentials)
	}

	signed, err := token.Issue(user.Email, user.ID, details.Authorities, a.secret, a.ttl)
	if err != nil {
		return nil, err
	}
	return &Authentication{User: user, Authorities: details.Authorities, Token: signed}, nil
}
