package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimsKey is where Authenticate stores verified claims.
const ClaimsKey = "claims"

// Issuer normalizes an Auth0 domain ("tenant.auth0.com" or
// "https://tenant.auth0.com/") into the issuer URL, always with a trailing
// slash.
func Issuer(domain string) string {
	d := strings.TrimSpace(domain)
	if !strings.HasPrefix(d, "https://") && !strings.HasPrefix(d, "http://") {
		d = "https://" + d
	}
	return strings.TrimRight(d, "/") + "/"
}

// JWKSURL is the key set location for issuer.
func JWKSURL(issuer string) string {
	return issuer + ".well-known/jwks.json"
}

// RemoteKeyfunc fetches and caches the key set at jwksURL. Refreshes stop
// when ctx is cancelled.
func RemoteKeyfunc(ctx context.Context, jwksURL string) (jwt.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load JWKS from %s: %w", jwksURL, err)
	}
	return k.Keyfunc, nil
}

// Verifier validates RS256 tokens for one issuer and audience.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

func NewVerifier(kf jwt.Keyfunc, issuer, audience string) *Verifier {
	return &Verifier{
		keyfunc: kf,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses token and returns its claims.
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyfunc); err != nil {
		return nil, err
	}
	return claims, nil
}

// Authenticate requires a valid bearer token and stores its claims.
func Authenticate(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			middleware.Fail(c, apperr.Unauthorized("Missing or invalid authorization header"))
			return
		}

		claims, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			logging.FromContext(c).WithError(err).Warn("token verification failed")
			middleware.Fail(c, apperr.Unauthorized("Invalid token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// Claims returns the claims stored by Authenticate.
func Claims(c *gin.Context) (jwt.MapClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}
