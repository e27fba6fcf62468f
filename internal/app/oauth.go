package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/semmidev/custos/internal/infrastructure/logger"
)

// DriveAuthServer runs the one-time OAuth consent flow for Google Drive
// destinations. The resulting authorized-user token is written to
// tokenPath, which can then be pointed at by a destination's
// credentials_file.
type DriveAuthServer struct {
	config    *oauth2.Config
	logger    *logger.Logger
	tokenPath string
	server    *http.Server
}

func NewDriveAuthServer(log *logger.Logger, clientSecretPath, tokenPath string) (*DriveAuthServer, error) {
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}

	return &DriveAuthServer{
		config:    cfg,
		logger:    log,
		tokenPath: tokenPath,
	}, nil
}

// Start serves the consent flow on addr until Shutdown. Visit
// /auth/google/drive in a browser to begin.
func (s *DriveAuthServer) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		authURL := s.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := s.config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		if token.RefreshToken == "" {
			fmt.Fprintln(w, "⚠️ No refresh token returned. Revoke app access and re-authorize.")
			return
		}

		if err := s.saveToken(token); err != nil {
			http.Error(w, fmt.Sprintf("failed to save token: %v", err), http.StatusInternalServerError)
			return
		}

		s.logger.Infof("Google Drive token saved to %s", s.tokenPath)
		fmt.Fprintf(w, "✅ Token saved to %s\nPoint your destination's credentials_file at it.\n", s.tokenPath)
	})

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Infof("Google Drive OAuth server listening on %s", s.server.Addr)
		s.logger.Infof("Open http://localhost%s/auth/google/drive to authorize", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("OAuth server error: %v", err)
		}
	}()

	return nil
}

// saveToken writes the token in the authorized-user format the Drive
// client loads from a credentials file.
func (s *DriveAuthServer) saveToken(token *oauth2.Token) error {
	out := struct {
		Type         string `json:"type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		RefreshToken string `json:"refresh_token"`
	}{
		Type:         "authorized_user",
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		RefreshToken: token.RefreshToken,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.tokenPath, data, 0600)
}

func (s *DriveAuthServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	s.logger.Infof("OAuth server stopped")
	return nil
}
