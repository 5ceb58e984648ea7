package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUser is the portion of Google's userinfo response we care about.
//
// Userinfo docs: https://developers.google.com/identity/openid-connect/openid-connect#obtaininguserprofileinformation
type GoogleUser struct {
	Subject string `json:"sub"`     // Google's stable account id
	Email   string `json:"email"`   // may be empty if the scope was denied
	Name    string `json:"name"`    // full display name
	Picture string `json:"picture"` // avatar URL
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code
// flow:
//
//  1. We redirect the user to Google's authorization endpoint.
//  2. Google redirects back to our callback URL with a short-lived code.
//  3. We exchange the code for an access token (server-to-server, so the
//     token never touches the browser).
//  4. We call the userinfo endpoint with the token.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// callbackURL must match the authorized redirect URI configured in the
// Google Cloud console exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random nonce we store in a cookie before redirecting and
// verify on callback — standard OAuth CSRF protection. hd hints Google to
// preselect accounts on the given hosted domain; it is a UX hint only, the
// real domain policy check happens server-side after the exchange.
func (p *GoogleProvider) AuthURL(state, hostedDomain string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	if hostedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", hostedDomain))
	}
	return p.config.AuthCodeURL(state, opts...)
}

// Exchange completes the flow: trades the authorization code for a Google
// user profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Client returns an *http.Client that adds the bearer token to every
	// request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var gUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if gUser.Subject == "" {
		return nil, fmt.Errorf("auth: Google returned an invalid user (empty sub)")
	}

	gUser.Picture = NormalizeGooglePicture(gUser.Picture)
	return &gUser, nil
}

var googlePictureSize = regexp.MustCompile(`=s\d+-c$`)

// NormalizeGooglePicture rewrites the size suffix Google appends to avatar
// URLs to a fixed 256px so avatars render consistently.
func NormalizeGooglePicture(url string) string {
	clean := strings.TrimSpace(url)
	if clean == "" {
		return ""
	}
	return googlePictureSize.ReplaceAllString(clean, "=s256-c")
}
