package google

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig(testClientJSON, "")
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "spreadsheets") {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}

	if _, err := OAuthConfig("", ""); err == nil {
		t.Error("expected error without client")
	}
	if _, err := OAuthConfig("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveTokenAndTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	cfg := Config{OAuthClientJSON: testClientJSON, OAuthTokenFile: path}
	if !cfg.hasOAuth() {
		t.Fatal("hasOAuth = false")
	}
	if _, err := oauthTokenSource(context.Background(), cfg); err != nil {
		t.Errorf("oauthTokenSource: %v", err)
	}

	empty, _ := json.Marshal(oauth2.Token{})
	cfg.OAuthTokenFile = ""
	cfg.OAuthTokenJSON = string(empty)
	if _, err := oauthTokenSource(context.Background(), cfg); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestConfigHasOAuthNeedsBoth(t *testing.T) {
	if (Config{OAuthClientJSON: "{}"}).hasOAuth() {
		t.Error("client alone is not enough")
	}
	if (Config{OAuthTokenFile: "t.json"}).hasOAuth() {
		t.Error("token alone is not enough")
	}
}
