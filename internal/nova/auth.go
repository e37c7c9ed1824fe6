package nova

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// NewTokenSource returns a client-credentials token source that posts the
// credentials in the form body and refreshes expired tokens.
func NewTokenSource(ctx context.Context, creds Credentials) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if creds.Scope != "" {
		cfg.Scopes = []string{creds.Scope}
	}
	return cfg.TokenSource(ctx)
}

// FetchToken obtains a token up front so a bad credential fails the run before any row.
func FetchToken(ts oauth2.TokenSource) (*oauth2.Token, error) {
	tok, err := ts.Token()
	if err != nil {
		return nil, common.AuthError(err)
	}
	if tok.AccessToken == "" {
		return nil, common.AuthError(errors.New("empty access token"))
	}
	return tok, nil
}

// NewHTTPClient returns an http.Client that adds the bearer token to every request.
// timeout 0 means no client timeout.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	c := oauth2.NewClient(ctx, ts)
	c.Timeout = timeout
	return c
}

func isTokenError(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}
