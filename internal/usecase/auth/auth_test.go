package auth

import (
	"errors"
	"testing"

	"github.com/lotusmind/yogachat/internal/domain"
)

func TestLogin(t *testing.T) {
	svc := New(map[string]string{"admin": "s3cret"})

	tests := []struct {
		name     string
		username string
		secret   string
		wantErr  bool
	}{
		{"valid", "admin", "s3cret", false},
		{"wrong secret", "admin", "wrong", true},
		{"unknown user", "nobody", "s3cret", true},
		{"empty secret", "admin", "", true},
		{"empty everything", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := svc.Login(tc.username, tc.secret)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidCredentials) {
					t.Fatalf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if !id.Authenticated || id.Key != tc.username {
				t.Errorf("unexpected identity: %+v", id)
			}
		})
	}
}

func TestLogin_EmptyTable(t *testing.T) {
	svc := New(nil)
	if _, err := svc.Login("admin", "s3cret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
