package authpw

import (
	"context"
	"errors"
	"testing"

	"tradedesk/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "dave@example.com",
		Password:    "longenough",
		DisplayName: "Dave",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected user ID")
	}
	if user.PasswordHash == "longenough" {
		t.Fatal("password stored in plain text")
	}

	signedIn, err := svc.SignIn(ctx, SignInRequest{Email: "dave@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if signedIn.ID != user.ID {
		t.Fatalf("SignIn() user = %s, want %s", signedIn.ID, user.ID)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newMockUserStore())

	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "dave@example.com",
		Password:    "short",
		DisplayName: "Dave",
	})
	if err == nil {
		t.Fatal("expected SignUp() to reject short password")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	req := SignUpRequest{Email: "dave@example.com", Password: "longenough", DisplayName: "Dave"}
	if _, err := svc.SignUp(ctx, req); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := svc.SignUp(ctx, req); err == nil {
		t.Fatal("expected SignUp() to reject duplicate email")
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "dave@example.com",
		Password:    "longenough",
		DisplayName: "Dave",
	}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	if _, err := svc.SignIn(ctx, SignInRequest{Email: "dave@example.com", Password: "wrongpass"}); err == nil {
		t.Fatal("expected SignIn() to reject wrong password")
	}
}
