// service/auth/auth_service_test.go
package authsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"movierental/model"
	"movierental/repository"
	"movierental/util/hash"
)

type mockRepo struct {
	byEmailFn func(ctx context.Context, email string) (*model.User, error)
	byIDFn    func(ctx context.Context, id uuid.UUID) (*model.User, error)
	createFn  func(ctx context.Context, u *model.User) error
}

var _ repository.UserStore = (*mockRepo)(nil)

func (m *mockRepo) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, repository.ErrNotFound
	}
	return m.byEmailFn(ctx, email)
}

func (m *mockRepo) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.byIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return m.byIDFn(ctx, id)
}

func (m *mockRepo) CreateUser(ctx context.Context, u *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

type issuerMock struct {
	issueFn func(userID uuid.UUID, isAdmin bool) (string, error)
}

func (m issuerMock) Issue(userID uuid.UUID, isAdmin bool) (string, error) {
	if m.issueFn == nil {
		return "token-" + userID.String(), nil
	}
	return m.issueFn(userID, isAdmin)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	h, err := hash.HashPassword(plain)
	require.NoError(t, err)
	return h
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	var created *model.User
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			created = u
			return nil
		},
	}
	svc := New(m, issuerMock{})

	u, tok, err := svc.Register(ctx, model.RegisterReq{
		Name:     "Halim Iskandar",
		Email:    "USER@Example.COM",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, created, u)
	require.Equal(t, "token-"+u.ID.String(), tok)
	require.Equal(t, "user@example.com", u.Email)
	require.False(t, u.IsAdmin)
	require.True(t, hash.Check(u.PasswordHash, "supersecret"))
}

func TestRegister_BadInput(t *testing.T) {
	svc := New(&mockRepo{}, issuerMock{})

	_, _, err := svc.Register(context.Background(), model.RegisterReq{Email: " ", Password: "123"})
	require.Error(t, err)
	require.Equal(t, ErrBadInput, Code(err))
}

func TestRegister_EmailTaken(t *testing.T) {
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: uuid.New(), Email: email}, nil
		},
	}
	svc := New(m, issuerMock{})

	_, _, err := svc.Register(context.Background(), model.RegisterReq{Name: "Halim", Email: "taken@example.com", Password: "123456"})
	require.Error(t, err)
	require.Equal(t, ErrEmailTaken, Code(err))
	require.Equal(t, "User already registered.", err.Error())
}

func TestRegister_DuplicateOnInsert(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return repository.ErrDuplicate
		},
	}
	svc := New(m, issuerMock{})

	_, _, err := svc.Register(context.Background(), model.RegisterReq{Name: "Halim", Email: "race@example.com", Password: "123456"})
	require.Equal(t, ErrEmailTaken, Code(err))
}

func TestRegister_CreateError(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return errors.New("db down")
		},
	}
	svc := New(m, issuerMock{})

	_, _, err := svc.Register(context.Background(), model.RegisterReq{Name: "Halim", Email: "ok@example.com", Password: "123456"})
	require.Error(t, err)
	require.Equal(t, ErrCode(""), Code(err))
}

func TestLogin_Success(t *testing.T) {
	pw := "supersecret"
	hashed := mustHash(t, pw)
	uid := uuid.New()

	var issuedAdmin bool
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			require.Equal(t, "user@example.com", email)
			return &model.User{ID: uid, Email: email, PasswordHash: hashed, IsAdmin: true}, nil
		},
	}
	svc := New(m, issuerMock{issueFn: func(id uuid.UUID, isAdmin bool) (string, error) {
		issuedAdmin = isAdmin
		return "signed", nil
	}})

	u, tok, err := svc.Login(context.Background(), model.LoginReq{Email: "User@Example.com", Password: pw})
	require.NoError(t, err)
	require.Equal(t, uid, u.ID)
	require.Equal(t, "signed", tok)
	require.True(t, issuedAdmin)
}

func TestLogin_BadInput(t *testing.T) {
	svc := New(&mockRepo{}, issuerMock{})

	_, _, err := svc.Login(context.Background(), model.LoginReq{Email: " ", Password: ""})
	require.Error(t, err)
	require.Equal(t, ErrBadInput, Code(err))
}

func TestLogin_UserNotFound(t *testing.T) {
	svc := New(&mockRepo{}, issuerMock{})

	_, _, err := svc.Login(context.Background(), model.LoginReq{Email: "missing@example.com", Password: "whatever"})
	require.Error(t, err)
	require.Equal(t, ErrInvalidCreds, Code(err))
	require.Equal(t, "Invalid email or password.", err.Error())
}

func TestLogin_WrongPassword(t *testing.T) {
	hashed := mustHash(t, "correct-password")

	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hashed}, nil
		},
	}
	svc := New(m, issuerMock{})

	_, _, err := svc.Login(context.Background(), model.LoginReq{Email: "user@example.com", Password: "wrong-password"})
	require.Error(t, err)
	require.Equal(t, ErrInvalidCreds, Code(err))
}

func TestMe(t *testing.T) {
	uid := uuid.New()
	m := &mockRepo{
		byIDFn: func(ctx context.Context, id uuid.UUID) (*model.User, error) {
			if id == uid {
				return &model.User{ID: uid, Name: "Halim"}, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := New(m, issuerMock{})

	u, err := svc.Me(context.Background(), uid)
	require.NoError(t, err)
	require.Equal(t, "Halim", u.Name)

	_, err = svc.Me(context.Background(), uuid.New())
	require.Equal(t, ErrUserNotFound, Code(err))
}

func TestCodeExtractor(t *testing.T) {
	require.Equal(t, ErrEmailTaken, Code(wrap(ErrEmailTaken, "x")))
	require.Equal(t, ErrEmailTaken, Code(errors.Join(errors.New("ctx"), wrap(ErrEmailTaken, "x"))))
	require.Equal(t, ErrCode(""), Code(errors.New("plain")))
}
