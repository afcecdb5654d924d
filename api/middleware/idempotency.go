package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/threadmart-backend/api/responses"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/threadmart-backend/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	replayedHeader        = "Idempotent-Replayed"
	defaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyRule marks a route whose POSTs can be replayed safely with an Idempotency-Key.
type IdempotencyRule struct {
	Method   string
	Pattern  string
	TTL      time.Duration
	Required bool
}

// DefaultIdempotencyRules covers order placement plus the catalog creation endpoints.
func DefaultIdempotencyRules(orderTTL time.Duration) []IdempotencyRule {
	if orderTTL <= 0 {
		orderTTL = defaultIdempotencyTTL
	}
	return []IdempotencyRule{
		{Method: http.MethodPost, Pattern: "/api/v1/orders", TTL: orderTTL, Required: true},
		{Method: http.MethodPost, Pattern: "/api/v1/discounts", TTL: defaultIdempotencyTTL},
		{Method: http.MethodPost, Pattern: "/api/v1/products", TTL: defaultIdempotencyTTL},
		{Method: http.MethodPost, Pattern: "/api/v1/shops", TTL: defaultIdempotencyTTL},
	}
}

func matchRule(rules []IdempotencyRule, method, pattern string) (IdempotencyRule, bool) {
	pattern = strings.TrimSuffix(pattern, "/")
	for _, rule := range rules {
		if rule.Method == method && rule.Pattern == pattern {
			return rule, true
		}
	}
	return IdempotencyRule{}, false
}

// storedResponse is the redis value for a key. Until the handler finishes it
// only carries the fingerprint.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) encode() string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

var (
	errKeyInFlight = pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress")
	errKeyReused   = pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
)

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	rules []IdempotencyRule
	logg  *logger.Logger
}

// Idempotency replays the stored response for a repeated key. A key reused with a
// different body, or while the first request is still running, is rejected.
// Server errors are not stored so the client may retry them.
func Idempotency(store pkgredis.IdempotencyStore, rules []IdempotencyRule, logg *logger.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, rules: rules, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchRule(g.rules, r.Method, routePattern(r))
			if !ok || g.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(next, rule, w, r)
		})
	}
}

func (g *idempotencyGuard) serve(next http.Handler, rule IdempotencyRule, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if clientKey == "" {
		if rule.Required {
			responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}
		next.ServeHTTP(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintOf(body)
	key := g.store.IdempotencyKey(callerScope(r), clientKey)

	claimed, err := g.store.SetNX(ctx, key, storedResponse{Fingerprint: fingerprint}.encode(), rule.TTL)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if !claimed {
		g.replay(ctx, w, key, fingerprint)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	if capture.statusCode() >= http.StatusInternalServerError {
		g.warn(ctx, "release idempotency key", g.store.Del(ctx, key))
		return
	}
	g.save(ctx, key, rule.TTL, storedResponse{
		Fingerprint: fingerprint,
		Done:        true,
		Status:      capture.statusCode(),
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
}

func (g *idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, key, fingerprint string) {
	raw, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// released between SetNX and Get
		responses.WriteError(ctx, g.logg, w, errKeyInFlight)
		return
	case err != nil:
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case prior.Fingerprint != fingerprint:
		responses.WriteError(ctx, g.logg, w, errKeyReused)
	case !prior.Done:
		responses.WriteError(ctx, g.logg, w, errKeyInFlight)
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

// save replaces the in-flight marker with the finished response.
func (g *idempotencyGuard) save(ctx context.Context, key string, ttl time.Duration, resp storedResponse) {
	if err := g.store.Del(ctx, key); err != nil {
		g.warn(ctx, "clear pending idempotency record", err)
		return
	}
	_, err := g.store.SetNX(ctx, key, resp.encode(), ttl)
	g.warn(ctx, "persist idempotency record", err)
}

func (g *idempotencyGuard) warn(ctx context.Context, msg string, err error) {
	if g.logg != nil && err != nil {
		g.logg.Error(ctx, msg, err)
	}
}

// callerScope keeps keys from different users, or different routes, apart.
func callerScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
