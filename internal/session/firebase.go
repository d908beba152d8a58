package session

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

type FirebaseConfig struct {
	ProjectID string
	// CredentialsJSON is a service account key. Empty means application
	// default credentials.
	CredentialsJSON string
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify also rejects tokens issued before the last revocation.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*models.Session, error) {
	tok, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &models.Session{
		AccountID:   tok.UID,
		Email:       claimString(tok.Claims, "email"),
		DisplayName: claimString(tok.Claims, "name"),
		PhotoURL:    claimString(tok.Claims, "picture"),
	}, nil
}

func (v *FirebaseVerifier) Revoke(ctx context.Context, accountID string) error {
	return v.client.RevokeRefreshTokens(ctx, accountID)
}

func claimString(claims map[string]interface{}, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
