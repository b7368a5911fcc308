package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidToken is returned by a TokenValidator that rejects the credential.
// Any other validation error means the check itself could not be made.
var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultAuthTimeout  = 5 * time.Second
	DefaultAuthCacheTTL = time.Minute

	maxCachedTokens = 1024
)

// TokenValidator checks a bearer credential against the upstream service.
type TokenValidator interface {
	Validate(ctx context.Context, token string, timeout time.Duration) error
}

type tokenKey struct{}

// TokenFromContext returns the bearer token accepted by Authenticator.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// WithToken stores token the way Authenticator does. Used by callers that
// authenticate out of band.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Authenticator validates bearer tokens upstream and remembers accepted ones
// for a TTL. Tokens are never stored in clear: the cache is keyed by a keyed
// blake2b fingerprint. Concurrent checks of the same token share one call.
type Authenticator struct {
	validator TokenValidator
	timeout   time.Duration
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time

	key   []byte
	group singleflight.Group

	mu    sync.Mutex
	valid map[string]time.Time
}

func NewAuthenticator(validator TokenValidator, timeout, ttl time.Duration, logger *slog.Logger) (*Authenticator, error) {
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	return &Authenticator{
		validator: validator,
		timeout:   timeout,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		key:       key,
		valid:     make(map[string]time.Time),
	}, nil
}

// Middleware rejects requests without a valid bearer token with 401 and
// answers 503 when the upstream check cannot be made.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Authorization bearer token is required")
			return
		}

		if err := a.check(r.Context(), token); err != nil {
			if errors.Is(err, ErrInvalidToken) {
				a.logger.InfoContext(r.Context(), "upstream rejected token",
					"request_id", RequestIDFromContext(r.Context()))
				writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization token")
				return
			}
			a.logger.ErrorContext(r.Context(), "token validation failed",
				"request_id", RequestIDFromContext(r.Context()), "error", err)
			writeJSONError(w, http.StatusServiceUnavailable, "Unable to validate token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
	})
}

func (a *Authenticator) check(ctx context.Context, token string) error {
	fp := a.fingerprint(token)
	if a.cached(fp) {
		return nil
	}

	_, err, _ := a.group.Do(fp, func() (any, error) {
		// Shared by every waiter, so one caller going away must not fail the rest.
		err := a.validator.Validate(context.WithoutCancel(ctx), token, a.timeout)
		if err == nil {
			a.remember(fp)
		}
		return nil, err
	})
	return err
}

func (a *Authenticator) fingerprint(token string) string {
	h, _ := blake2b.New256(a.key)
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

func (a *Authenticator) cached(fp string) bool {
	if a.ttl == 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	expires, ok := a.valid[fp]
	if !ok {
		return false
	}
	if !a.now().Before(expires) {
		delete(a.valid, fp)
		return false
	}
	return true
}

func (a *Authenticator) remember(fp string) {
	if a.ttl == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if len(a.valid) >= maxCachedTokens {
		for k, expires := range a.valid {
			if !now.Before(expires) {
				delete(a.valid, k)
			}
		}
	}
	if len(a.valid) < maxCachedTokens {
		a.valid[fp] = now.Add(a.ttl)
	}
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

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
