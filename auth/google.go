package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	stateTTL = 10 * time.Minute
)

// GoogleProfile is the subset of the userinfo response we keep.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuth runs the authorization-code flow against Google. Config and
// UserInfoURL are exported so tests can point them at a local server.
type GoogleOAuth struct {
	Config      *oauth2.Config
	UserInfoURL string
	StateSecret []byte
	HTTPClient  *http.Client
}

func NewGoogleOAuth(clientID, clientSecret, backendURL string, stateSecret []byte) *GoogleOAuth {
	return &GoogleOAuth{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  strings.TrimRight(backendURL, "/") + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: googleUserInfoURL,
		StateSecret: stateSecret,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// State returns a short-lived signed value to round-trip through Google.
func (g *GoogleOAuth) State() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "google-oauth",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(stateTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.StateSecret)
}

func (g *GoogleOAuth) VerifyState(state string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		return g.StateSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Subject != "google-oauth" {
		return errors.New("invalid oauth state")
	}
	return nil
}

func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the authorization code for the user's Google profile.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)

	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "token exchange")
	}
	return g.userInfo(ctx, g.Config.Client(ctx, tok))
}

func (g *GoogleOAuth) userInfo(ctx context.Context, client *http.Client) (*GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build userinfo request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "userinfo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var p GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode userinfo")
	}
	if p.ID == "" || p.Email == "" {
		return nil, errors.New("userinfo missing id or email")
	}
	return &p, nil
}
