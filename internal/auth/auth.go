// Package auth attaches an upstream-verified user identity to each request.
// Token verification itself is an external collaborator; this package only
// defines the boundary and a Firebase-backed implementation of it.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// UserClaims is the authenticated user identity attached to a request.
type UserClaims struct {
	UID      string
	Email    string
	Verified bool
}

// TokenVerifier verifies a bearer token and returns the user it belongs to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*UserClaims, error)
}

// FirebaseVerifier implements TokenVerifier against Firebase Auth.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initializes the Firebase app. Credentials come from
// the environment on Cloud Run; a service-account file is picked up locally
// via GOOGLE_APPLICATION_CREDENTIALS or ./service-account.json.
func NewFirebaseVerifier(ctx context.Context) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if creds := serviceAccountPath(); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// VerifyToken verifies a Firebase ID token.
func (f *FirebaseVerifier) VerifyToken(ctx context.Context, idToken string) (*UserClaims, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify ID token: %w", err)
	}

	claims := &UserClaims{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		claims.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		claims.Verified = verified
	}
	return claims, nil
}

func serviceAccountPath() string {
	if p := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); p != "" {
		return p
	}
	if _, err := os.Stat("service-account.json"); err == nil {
		return "service-account.json"
	}
	return ""
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("authorization header is required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header must be a Bearer token")
	}
	return parts[1], nil
}
