package adminkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ResolverFunc adapts a function to PrincipalResolver.
type ResolverFunc func(r *http.Request) (string, error)

// Resolve calls f(r).
func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// ContextResolver resolves the identity put on the request context by an
// upstream authentication middleware through WithIdentityID.
type ContextResolver struct{}

// Resolve implements PrincipalResolver.
func (ContextResolver) Resolve(r *http.Request) (string, error) {
	if id := GetIdentityID(r.Context()); id != "" {
		return id, nil
	}
	return "", ErrUnauthenticated
}

// HeaderResolver trusts an identity header set by an authenticating gateway.
// Only use it behind a proxy that strips the header from client requests.
type HeaderResolver struct {
	Header string
}

// Resolve implements PrincipalResolver.
func (h HeaderResolver) Resolve(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(h.Header)); id != "" {
		return id, nil
	}
	return "", ErrUnauthenticated
}

// BearerResolver verifies the bearer token of the Authorization header.
type BearerResolver struct {
	Verifier TokenVerifier
}

// Resolve implements PrincipalResolver. A missing or rejected token is
// ErrUnauthenticated. A cancelled or timed out verification and an
// unreachable identity provider are passed through as failures of their own.
func (b BearerResolver) Resolve(r *http.Request) (string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return "", ErrUnauthenticated
	}

	id, err := b.Verifier.Verify(r.Context(), token)
	switch {
	case err == nil && id != "":
		return id, nil
	case err == nil:
		return "", NewError(ErrUnauthenticated, "token carries no subject")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "", err
	case errors.Is(err, ErrInternal):
		return "", err
	case errors.Is(err, ErrUnauthenticated):
		return "", err
	}
	return "", NewError(ErrUnauthenticated, "token rejected").WithCause(err)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OIDCVerifier verifies OpenID Connect ID tokens and uses their subject
// claim as the identity reference.
//
// Token content failures (malformed token, wrong issuer or audience, expiry,
// a signature no fetched key accepts) are ErrUnauthenticated. Failing to get
// signing keys is ErrIdentityProvider, and a cancelled or expired context is
// returned as is.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and verifies tokens issued for
// clientID.
//
// Example:
//
//	verifier, err := adminkit.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	authorizer := adminkit.NewAuthorizer(service,
//	    adminkit.WithResolver(adminkit.BearerResolver{Verifier: verifier}))
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	var meta struct {
		JWKSURL string   `json:"jwks_uri"`
		Algs    []string `json:"id_token_signing_alg_values_supported"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("failed to read OIDC provider metadata: %w", err)
	}

	// The key set outlives ctx; it keeps only its values (HTTP client).
	keySet := oidc.NewRemoteKeySet(context.WithoutCancel(ctx), meta.JWKSURL)
	return NewOIDCVerifierWithKeySet(issuer, keySet, &oidc.Config{
		ClientID:             clientID,
		SupportedSigningAlgs: meta.Algs,
	}), nil
}

// NewOIDCVerifierWithKeySet builds a verifier without discovery, for issuers
// whose keys are known up front.
func NewOIDCVerifierWithKeySet(issuer string, keySet oidc.KeySet, config *oidc.Config) *OIDCVerifier {
	return &OIDCVerifier{verifier: oidc.NewVerifier(issuer, observedKeySet{keySet}, config)}
}

// Verify implements TokenVerifier.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (string, error) {
	failure := &keySetFailure{}
	idToken, err := v.verifier.Verify(context.WithValue(ctx, keySetFailureKey{}, failure), token)
	if err == nil {
		return idToken.Subject, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("verify ID token: %w", ctxErr)
	}
	if failure.err != nil {
		return "", NewError(ErrIdentityProvider, "failed to get signing keys").WithCause(failure.err)
	}

	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) {
		return "", NewError(ErrUnauthenticated, "ID token expired").WithCause(err)
	}
	return "", NewError(ErrUnauthenticated, "invalid ID token").WithCause(err)
}

// go-oidc flattens key set errors into text, so observedKeySet hands the
// ones that are not a plain signature rejection back to Verify.
type observedKeySet struct {
	oidc.KeySet
}

type keySetFailure struct {
	err error
}

type keySetFailureKey struct{}

func (k observedKeySet) VerifySignature(ctx context.Context, jwt string) ([]byte, error) {
	payload, err := k.KeySet.VerifySignature(ctx, jwt)
	if err != nil && !isSignatureRejection(err) {
		if failure, ok := ctx.Value(keySetFailureKey{}).(*keySetFailure); ok {
			failure.err = err
		}
	}
	return payload, err
}

// isSignatureRejection reports whether a key set error means the keys were
// available and none of them accepted the token.
func isSignatureRejection(err error) bool {
	msg := err.Error()
	for _, rejection := range signatureRejections {
		if strings.HasPrefix(msg, rejection) {
			return true
		}
	}
	return false
}

// Messages of oidc.RemoteKeySet and oidc.StaticKeySet for tokens their keys
// cannot verify.
var signatureRejections = []string{
	"failed to verify id token signature",
	"no public keys able to verify jwt",
	"parsing jwt",
}
