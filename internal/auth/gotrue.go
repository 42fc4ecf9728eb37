package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// GoTrueVerifier asks the hosted auth service to resolve every token.
type GoTrueVerifier struct {
	client gotrue.Client
}

// NewGoTrueVerifier creates a client for the auth service behind supabaseURL.
// Hosted projects (*.supabase.co) are addressed by project reference, anything
// else is treated as a self-hosted GoTrue base URL.
func NewGoTrueVerifier(supabaseURL, serviceKey string) *GoTrueVerifier {
	ref := extractProjectRef(supabaseURL)
	client := gotrue.New(ref, serviceKey)
	if !strings.Contains(supabaseURL, ".supabase.co") {
		client = client.WithCustomGoTrueURL(strings.TrimRight(supabaseURL, "/") + "/auth/v1")
	}
	return &GoTrueVerifier{client: client}
}

// Verify implements Verifier.
func (v *GoTrueVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	resp, err := v.client.WithToken(token).GetUser()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: get user: %v", ErrUnauthenticated, err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: empty user", ErrUnauthenticated)
	}
	return Identity{UserID: resp.ID.String(), Email: resp.Email}, nil
}

// DeleteUser removes the account from the auth service.
func (v *GoTrueVerifier) DeleteUser(_ context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	if err := v.client.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: id}); err != nil {
		return fmt.Errorf("admin delete user: %w", err)
	}
	return nil
}

// extractProjectRef extracts just the project reference ID from a Supabase URL
// From: https://akrqbuajqkirdekonpzy.supabase.co
// To: akrqbuajqkirdekonpzy
func extractProjectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	parts := strings.Split(url, ".")
	return parts[0]
}
