package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Files.ReadWrite",
	"offline_access",
}

// ErrNotSignedIn is returned in non-interactive mode when no usable token is
// cached.
var ErrNotSignedIn = errors.New("not signed in to OneDrive (run `stt backup login`)")

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// tokenStore reads and writes the cached token below the data directory.
type tokenStore struct {
	path string
}

func newTokenStore(baseDir string) tokenStore {
	return tokenStore{path: filepath.Join(baseDir, "auth", "msgraph_tokens.json")}
}

// oauth2Config returns the oauth2.Config for Microsoft Graph using the
// provided tenant and client IDs.
func oauth2Config(tenantID, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(tenantID, "devicecode"),
			TokenURL:      msEndpoint(tenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// load returns the saved token, or nil if none exists.
func (s tokenStore) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", s.path, err)
	}
	return &tok, nil
}

func (s tokenStore) save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

func (s tokenStore) remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// authenticate loads saved tokens, refreshes them if needed, or runs the
// device code flow. With interactive false it never prompts and returns
// ErrNotSignedIn instead.
func authenticate(ctx context.Context, store tokenStore, cfg *oauth2.Config, interactive bool) (*oauth2.Token, error) {
	tok, err := store.load()
	if err != nil {
		// Corrupt token: warn and re-auth.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		tok = nil
	}

	if tok != nil && tok.Valid() {
		return tok, nil
	}

	if tok != nil && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if err2 := store.save(refreshed); err2 != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save refreshed token: %v\n", err2)
			}
			return refreshed, nil
		}
		if !interactive {
			return nil, fmt.Errorf("%w: token refresh failed: %v", ErrNotSignedIn, err)
		}
		fmt.Fprintf(os.Stderr, "Token refresh failed (%v), re-authenticating...\n", err)
	}

	if !interactive {
		return nil, ErrNotSignedIn
	}

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Println()
	fmt.Println("To sign in, use a web browser to open the page:")
	fmt.Printf("  %s\n", resp.VerificationURI)
	fmt.Printf("Enter the code: %s\n", resp.UserCode)
	fmt.Println()

	newTok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}

	if err := store.save(newTok); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save token: %v\n", err)
	}
	return newTok, nil
}

// Settings selects the Azure app and the drive to use.
type Settings struct {
	TenantID string
	ClientID string
	// DriveID selects a shared drive; empty means the signed-in user's drive.
	DriveID string
}

// LoadClient returns an authenticated OneDrive client. baseDir is the data
// directory the token cache lives in.
func LoadClient(ctx context.Context, baseDir string, s Settings, interactive bool) (*Client, error) {
	if s.ClientID == "" {
		return nil, errors.New("onedrive client_id is not configured")
	}
	tenant := s.TenantID
	if tenant == "" {
		tenant = "common"
	}
	store := newTokenStore(baseDir)
	cfg := oauth2Config(tenant, s.ClientID)
	tok, err := authenticate(ctx, store, cfg, interactive)
	if err != nil {
		return nil, err
	}
	ts := &savingTokenSource{ts: cfg.TokenSource(ctx, tok), store: store}
	return NewClient(oauth2.NewClient(ctx, ts), graphBaseURL, s.DriveID), nil
}

// Logout deletes the cached token.
func Logout(baseDir string) error {
	return newTokenStore(baseDir).remove()
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts    oauth2.TokenSource
	store tokenStore
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	// Best-effort save; ignore errors.
	_ = s.store.save(tok)
	return tok, nil
}
