package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/peeragogy/handbook-ai/internal/plan"
)

// ErrUnauthenticated indicates a missing or unknown bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is a resolved caller identity.
type Principal struct {
	ID   string
	Tier string
}

// authGate checks bearer tokens against a small static allow-list and
// issues the demo token through the login endpoint. Tokens never
// expire; rotating them means restarting with new configuration.
//
// This is an explicit demo-mode policy object: a production deployment
// swaps it for a real identity provider without touching the handlers.
type authGate struct {
	tokens       map[string]Principal
	demoToken    string
	demoUsername string
	demoPassword string
}

// newAuthGate builds the gate. apiToken (optional) is admitted at the
// pro tier; the demo login pair maps to a generated demo-tier token.
func newAuthGate(apiToken, demoUsername, demoPassword string) *authGate {
	g := &authGate{
		tokens:       make(map[string]Principal),
		demoToken:    "hb-demo-" + uuid.NewString(),
		demoUsername: demoUsername,
		demoPassword: demoPassword,
	}
	if apiToken != "" {
		g.tokens[apiToken] = Principal{ID: "api", Tier: plan.TierPro}
	}
	g.tokens[g.demoToken] = Principal{ID: demoUsername, Tier: plan.TierDemo}
	return g
}

// Authenticate resolves a bearer token to a principal.
func (g *authGate) Authenticate(token string) (Principal, error) {
	if token == "" {
		return Principal{}, errors.New("missing bearer token")
	}
	for candidate, p := range g.tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return p, nil
		}
	}
	return Principal{}, ErrUnauthenticated
}

// Login checks the demo credential pair and returns the demo token.
func (g *authGate) Login(username, password string) (string, Principal, bool) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.demoUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.demoPassword)) == 1
	if !userOK || !passOK {
		return "", Principal{}, false
	}
	return g.demoToken, g.tokens[g.demoToken], true
}

// authMiddleware rejects requests without a valid bearer token and
// attaches the resolved principal to the context.
func authMiddleware(g *authGate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			p, err := g.Authenticate(token)
			if err != nil {
				logger.Warn("authentication failed",
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token", logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), p)))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
