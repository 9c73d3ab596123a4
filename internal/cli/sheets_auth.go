package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"spese-analytics/internal/source/google"
)

const authTimeout = 5 * time.Minute

type callbackResult struct {
	code string
	err  error
}

// oauthCallback receives the redirect of the consent screen. The first
// request with a matching state wins; later ones are ignored.
func oauthCallback(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		default:
			res.code = q.Get("code")
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (a *App) sheetsAuthCmd() *cobra.Command {
	var clientFile, tokenFile, port string
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize the Google Sheets backend with a user account and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := google.OAuthConfig(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"), clientFile)
			if err != nil {
				return err
			}
			return a.runSheetsAuth(cmd.Context(), cfg, port, tokenFile)
		},
	}
	cmd.Flags().StringVar(&clientFile, "client-file", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client JSON file")
	cmd.Flags().StringVar(&tokenFile, "token-file", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "Where to save the token")
	cmd.Flags().StringVar(&port, "port", envOr("OAUTH_REDIRECT_PORT", "8085"), "Local port for the redirect URI")
	return cmd
}

func (a *App) runSheetsAuth(ctx context.Context, cfg *oauth2.Config, port, tokenFile string) error {
	state, err := randomState()
	if err != nil {
		return err
	}
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("GET /callback", oauthCallback(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", "localhost:"+port)
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(a.out, "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	select {
	case res := <-results:
		if res.err != nil {
			return res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := google.SaveToken(tokenFile, tok); err != nil {
			return err
		}
		printSuccess(a.out, "Saved token to "+tokenFile)
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("authorization timed out")
		}
		return ctx.Err()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
