package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Setting keys used to keep Drive state in the ledger.
const (
	SettingCredentials = "drive.credentials"
	SettingToken       = "drive.token"
	SettingFileID      = "drive.fileId"
)

var requiredScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
}

// GoogleEndpoint is Google's OAuth2 device flow endpoint.
var GoogleEndpoint = oauth2.Endpoint{
	DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
	TokenURL:      "https://oauth2.googleapis.com/token",
	AuthStyle:     oauth2.AuthStyleInParams,
}

var (
	// ErrNoCredentials means no OAuth client has been configured yet.
	ErrNoCredentials = errors.New("gdrive: no client credentials, run `worklog drive login --client-id ... --client-secret ...`")
	// ErrNotLoggedIn means no token is stored.
	ErrNotLoggedIn = errors.New("gdrive: not logged in, run `worklog drive login`")
)

// Credentials identify the OAuth client ("TVs and Limited Input devices" type).
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// SettingsStore persists JSON-encodable values. The ledger satisfies it.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string, v any) (bool, error)
	PutSetting(ctx context.Context, key string, v any) error
}

// Auth runs the device flow and hands out authenticated HTTP clients. Tokens
// live in the settings store, not in a separate file.
type Auth struct {
	store    SettingsStore
	endpoint oauth2.Endpoint
	log      *zap.Logger
}

// AuthOption configures an Auth.
type AuthOption func(*Auth)

// WithEndpoint replaces GoogleEndpoint.
func WithEndpoint(ep oauth2.Endpoint) AuthOption {
	return func(a *Auth) { a.endpoint = ep }
}

// WithAuthLogger sets the logger for token refresh messages.
func WithAuthLogger(log *zap.Logger) AuthOption {
	return func(a *Auth) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAuth returns an Auth backed by store.
func NewAuth(store SettingsStore, opts ...AuthOption) *Auth {
	a := &Auth{
		store:    store,
		endpoint: GoogleEndpoint,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SaveCredentials stores the OAuth client used by Login.
func (a *Auth) SaveCredentials(ctx context.Context, creds Credentials) error {
	if creds.ClientID == "" {
		return errors.New("gdrive: client id is required")
	}
	return a.store.PutSetting(ctx, SettingCredentials, creds)
}

func (a *Auth) config(ctx context.Context) (*oauth2.Config, error) {
	var creds Credentials
	ok, err := a.store.GetSetting(ctx, SettingCredentials, &creds)
	if err != nil {
		return nil, err
	}
	if !ok || creds.ClientID == "" {
		return nil, ErrNoCredentials
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       requiredScopes,
		Endpoint:     a.endpoint,
	}, nil
}

// Login runs the OAuth2 device code flow, printing the verification URL and
// user code to out, and stores the resulting token.
func (a *Auth) Login(ctx context.Context, out io.Writer) error {
	cfg, err := a.config(ctx)
	if err != nil {
		return err
	}

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return fmt.Errorf("device authentication failed: %w", err)
	}
	if err := a.store.PutSetting(ctx, SettingToken, tok); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// HTTPClient returns an HTTP client that authorises requests with the stored
// token, refreshing it when needed and saving refreshed tokens back.
func (a *Auth) HTTPClient(ctx context.Context) (*http.Client, error) {
	cfg, err := a.config(ctx)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	ok, err := a.store.GetSetting(ctx, SettingToken, &tok)
	if err != nil {
		return nil, err
	}
	if !ok || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return nil, ErrNotLoggedIn
	}

	ts := &savingTokenSource{
		ctx:   ctx,
		ts:    cfg.TokenSource(ctx, &tok),
		store: a.store,
		last:  tok.AccessToken,
		log:   a.log,
	}
	return oauth2.NewClient(ctx, ts), nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ctx   context.Context
	ts    oauth2.TokenSource
	store SettingsStore
	last  string
	log   *zap.Logger
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// Best-effort save; the request can proceed with the new token.
		if err := s.store.PutSetting(s.ctx, SettingToken, tok); err != nil {
			s.log.Warn("could not save refreshed drive token", zap.Error(err))
		} else {
			s.log.Debug("drive token refreshed")
		}
	}
	return tok, nil
}
