package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/michaekong/memocloud/pkg/client"
	"github.com/michaekong/memocloud/pkg/memoire"
)

var (
	// ErrMissingCredentials rejects a login or sign-up without email or password.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidEmail rejects an address that does not validate.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidCredentials is returned when the API refuses an email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoAccessToken is returned when a login response carries no access token.
	ErrNoAccessToken = errors.New("login response has no access token")
)

// validate reports field names by their JSON tag.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}()

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,nefield=OldPassword"`
}

type resetPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// checkRequest maps validator failures onto the package's sentinel errors.
func checkRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return fmt.Errorf("%w: %s missing", ErrMissingCredentials, fe.Field())
		}
	}
	fe := fieldErrs[0]
	if fe.Field() == "email" {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, fe.Value())
	}
	return fmt.Errorf("invalid %s: failed %q", fe.Field(), fe.Tag())
}

// Login exchanges credentials for a JWT pair. The caller must not hold a
// stale token: the API rejects requests whose bearer token is invalid even
// on this endpoint.
func (s *Service) Login(ctx context.Context, email, password string) (memoire.Tokens, error) {
	req := loginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := checkRequest(req); err != nil {
		return memoire.Tokens{}, err
	}

	var tokens memoire.Tokens
	if err := s.http.PostJSON(ctx, "/auth/login/", req, &tokens); err != nil {
		if errors.Is(err, client.ErrUnauthorized) || client.IsStatus(err, http.StatusBadRequest) {
			return memoire.Tokens{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return memoire.Tokens{}, fmt.Errorf("login: %w", err)
	}
	if tokens.Access == "" {
		return memoire.Tokens{}, ErrNoAccessToken
	}
	s.logger.Info().Msg("Logged in with credentials")
	return tokens, nil
}

// Register creates an account. It does not log in.
func (s *Service) Register(ctx context.Context, r memoire.Registration) error {
	r.Email = strings.TrimSpace(r.Email)
	if err := checkRequest(r); err != nil {
		return err
	}
	if err := s.http.PostJSON(ctx, "/auth/register/", r, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// ChangePassword replaces the current user's password.
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	req := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := checkRequest(req); err != nil {
		return err
	}
	if err := s.http.PostJSON(ctx, "/auth/change-password/", req, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// ResetPassword asks the API to email a reset link.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	req := resetPasswordRequest{Email: strings.TrimSpace(email)}
	if err := checkRequest(req); err != nil {
		return err
	}
	if err := s.http.PostJSON(ctx, "/auth/reset-password/", req, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
