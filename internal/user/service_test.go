package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/smilecook/internal/mail"
	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
	activateFn       func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = "user-1"
	return nil
}
func (m *mockUserRepo) Activate(ctx context.Context, id string) error {
	if m.activateFn != nil {
		return m.activateFn(ctx, id)
	}
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type mockPublisher struct {
	messages []mail.Message
	err      error
}

func (m *mockPublisher) SendMessage(ctx context.Context, msg mail.Message) error {
	m.messages = append(m.messages, msg)
	return m.err
}

func newTestService(repo *mockUserRepo, pub *mockPublisher) (*Service, *ActivationTokens) {
	tokens := NewActivationTokens([]byte("activation-secret"), time.Hour)
	return NewService(repo, plainHasher{}, tokens, pub, "https://smilecook.example/"), tokens
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with %s, got %T: %v", code, err, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestRegister_CreatesInactiveUserAndSendsActivationMail(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = "user-1"
			created = user
			return nil
		},
	}
	pub := &mockPublisher{}
	svc, tokens := newTestService(repo, pub)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: " jack ",
		Email:    "Jack@Example.COM",
		Password: "WkQad19",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if created == nil || created.IsActive {
		t.Fatal("user must be created inactive")
	}
	if user.Email != "jack@example.com" {
		t.Errorf("Email = %q, want normalized", user.Email)
	}
	if user.Username != "jack" {
		t.Errorf("Username = %q, want trimmed", user.Username)
	}
	if user.PasswordHash != "hashed:WkQad19" {
		t.Errorf("PasswordHash = %q", user.PasswordHash)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Email != "jack@example.com" {
		t.Errorf("mail to = %q", msg.Email)
	}
	const prefix = "https://smilecook.example/users/activate/"
	if !strings.HasPrefix(msg.Link, prefix) {
		t.Fatalf("Link = %q, want prefix %q", msg.Link, prefix)
	}
	userID, err := tokens.Parse(strings.TrimPrefix(msg.Link, prefix))
	if err != nil || userID != "user-1" {
		t.Errorf("link token parse = (%q, %v), want user-1", userID, err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	svc, _ := newTestService(repo, &mockPublisher{})

	_, err := svc.Register(context.Background(), RegisterInput{Username: "jack", Email: "a@b.c", Password: "x"})
	assertCode(t, err, model.ErrCodeUserExists)

	var apiErr *model.APIError
	errors.As(err, &apiErr)
	if _, ok := apiErr.Errors["username"]; !ok {
		t.Errorf("Errors = %v, want username", apiErr.Errors)
	}
}

func TestRegister_DuplicateEmail_CaseInsensitive(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email == "jack@example.com" {
				return &model.User{ID: "existing"}, nil
			}
			return nil, nil
		},
	}
	svc, _ := newTestService(repo, &mockPublisher{})

	_, err := svc.Register(context.Background(), RegisterInput{Username: "jack2", Email: "JACK@example.com", Password: "x"})
	assertCode(t, err, model.ErrCodeUserExists)
}

// 事前チェック後に並行登録された場合は一意制約違反から判定する
func TestRegister_RaceOnUniqueConstraint(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	pub := &mockPublisher{}
	svc, _ := newTestService(repo, pub)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "jack", Email: "jack@example.com", Password: "x"})
	assertCode(t, err, model.ErrCodeUserExists)
	if len(pub.messages) != 0 {
		t.Error("no mail should be sent on failure")
	}
}

func TestRegister_PublishFailure_DoesNotFailRegistration(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{}, &mockPublisher{err: errors.New("broker down")})

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "jack", Email: "jack@example.com", Password: "x"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
}

func TestActivate_ValidToken_ActivatesUser(t *testing.T) {
	activated := ""
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, IsActive: false}, nil
		},
		activateFn: func(ctx context.Context, id string) error {
			activated = id
			return nil
		},
	}
	svc, tokens := newTestService(repo, &mockPublisher{})

	token, err := tokens.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if err := svc.Activate(context.Background(), token); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	if activated != "user-1" {
		t.Errorf("activated = %q, want user-1", activated)
	}
}

func TestActivate_AlreadyActive_IsNoop(t *testing.T) {
	called := false
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, IsActive: true}, nil
		},
		activateFn: func(ctx context.Context, id string) error {
			called = true
			return nil
		},
	}
	svc, tokens := newTestService(repo, &mockPublisher{})
	token, _ := tokens.Generate("user-1")

	if err := svc.Activate(context.Background(), token); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	if called {
		t.Error("repository Activate should not be called for active user")
	}
}

func TestActivate_InvalidToken(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{}, &mockPublisher{})
	assertCode(t, svc.Activate(context.Background(), "garbage"), model.ErrCodeInvalidActivation)
}

func TestActivate_UnknownUser(t *testing.T) {
	svc, tokens := newTestService(&mockUserRepo{}, &mockPublisher{})
	token, _ := tokens.Generate("ghost")
	assertCode(t, svc.Activate(context.Background(), token), model.ErrCodeUserNotFound)
}

func TestGetByUsername_NotFound(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{}, &mockPublisher{})
	_, err := svc.GetByUsername(context.Background(), "ghost")
	assertCode(t, err, model.ErrCodeUserNotFound)
}

func TestMe_ReturnsUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "jack"}, nil
		},
	}
	svc, _ := newTestService(repo, &mockPublisher{})

	u, err := svc.Me(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if u.Username != "jack" {
		t.Errorf("Username = %q", u.Username)
	}
}
