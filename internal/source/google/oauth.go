package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

func (c Config) hasOAuth() bool {
	return (c.OAuthClientJSON != "" || c.OAuthClientFile != "") &&
		(c.OAuthTokenJSON != "" || c.OAuthTokenFile != "")
}

// readInlineOrFile prefers inline JSON over a file path.
func readInlineOrFile(inline, path, what string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(path) != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("missing %s", what)
}

// OAuthConfig parses an OAuth client definition for the Sheets scope.
func OAuthConfig(clientJSON, clientFile string) (*oauth2.Config, error) {
	b, err := readInlineOrFile(clientJSON, clientFile, "OAuth client")
	if err != nil {
		return nil, err
	}
	cfg, err := googleoauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func oauthTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	oc, err := OAuthConfig(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, err
	}
	b, err := readInlineOrFile(cfg.OAuthTokenJSON, cfg.OAuthTokenFile, "OAuth token")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, errors.New("OAuth token has neither access nor refresh token")
	}
	return oc.TokenSource(ctx, &tok), nil
}

// SaveToken writes tok as JSON readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
