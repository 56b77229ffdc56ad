package auth

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GetGCloudTokenSource returns a token source for the service account key in
// credentialsFilePath. An empty path falls back to the application default
// credentials.
func GetGCloudTokenSource(ctx context.Context, credentialsFilePath string) (oauth2.TokenSource, error) {
	if credentialsFilePath == "" {
		tsrc, err := google.DefaultTokenSource(ctx, storage.ScopeFullControl)
		if err != nil {
			return nil, fmt.Errorf("failed to find default google cloud credentials: %w", err)
		}
		return tsrc, nil
	}

	credentialsJson, err := os.ReadFile(credentialsFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read google cloud client-secret file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(credentialsJson, storage.ScopeFullControl)
	if err != nil {
		return nil, fmt.Errorf("invalid google cloud key json \"%v\" err: %w", credentialsFilePath, err)
	}

	return conf.TokenSource(ctx), nil
}
