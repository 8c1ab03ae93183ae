package authsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"movierental/model"
	"movierental/repository"
	"movierental/util/hash"
)

type ErrCode string

const (
	ErrBadInput     ErrCode = "BAD_INPUT"
	ErrEmailTaken   ErrCode = "EMAIL_TAKEN"
	ErrInvalidCreds ErrCode = "INVALID_CREDENTIALS"
	ErrUserNotFound ErrCode = "USER_NOT_FOUND"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() ErrCode { return e.code }

func wrap(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// TokenIssuer signs an access token for a user.
type TokenIssuer interface {
	Issue(userID uuid.UUID, isAdmin bool) (string, error)
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
	Me(ctx context.Context, id uuid.UUID) (*model.User, error)
}

var _ Service = (*Authenticator)(nil)

type Authenticator struct {
	ur     repository.UserStore
	tokens TokenIssuer
	now    func() time.Time
}

func New(ur repository.UserStore, tokens TokenIssuer) *Authenticator {
	return &Authenticator{ur: ur, tokens: tokens, now: func() time.Time { return time.Now().UTC() }}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Authenticator) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", wrap(ErrBadInput, "Invalid input.")
	}

	if _, err := s.ur.UserByEmail(ctx, email); err == nil {
		return nil, "", wrap(ErrEmailTaken, "User already registered.")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    s.now(),
	}
	if err := s.ur.CreateUser(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", wrap(ErrEmailTaken, "User already registered.")
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Authenticator) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", wrap(ErrBadInput, "Invalid input.")
	}

	u, err := s.ur.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", wrap(ErrInvalidCreds, "Invalid email or password.")
		}
		return nil, "", err
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", wrap(ErrInvalidCreds, "Invalid email or password.")
	}

	token, err := s.tokens.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Authenticator) Me(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.ur.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrap(ErrUserNotFound, "The user with the given ID was not found.")
		}
		return nil, err
	}
	return u, nil
}
