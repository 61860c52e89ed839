// Package credstore resolves, validates, and caches the bearer token used to
// authenticate against the Hypha server. The token is a JWT: the store only
// decodes the claims payload to read the expiry, it never verifies the
// signature. This is a leaf package — it performs no network I/O and never
// prompts; when no usable token exists the caller is expected to direct the
// user to `hypha-apps login` or the HYPHA_TOKEN variable.
package credstore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

// SlotPerms restricts the cache slot to owner-only read/write.
const SlotPerms = 0o600

// DefaultSlotName is the cache slot filename, created in the process
// working directory so tokens stay scoped to the project being worked on.
const DefaultSlotName = ".hypha_token"

// ErrNoCredential is returned by Resolve when no source yields a token.
var ErrNoCredential = errors.New("credstore: no authentication token found")

// Validation failure kinds. Public so tests and the diagnostic path can
// distinguish them; the resolution path collapses all of them to "expired".
var (
	ErrMalformedToken = errors.New("credstore: token is not a three-segment JWT")
	ErrMissingExpiry  = errors.New("credstore: token has no exp claim")
)

// jwtSegments is the segment count of a compact JWT (header.payload.signature).
const jwtSegments = 3

// Store owns a single on-disk cache slot holding the raw token string.
// Construct one per process; the slot path is explicit rather than a
// package-level default so tests can point it at a temp directory.
type Store struct {
	path   string
	logger *slog.Logger

	// now is the clock used for expiry checks. Overridden in tests.
	now func() time.Time
}

// New creates a Store backed by the cache slot at path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the cache slot location.
func (s *Store) Path() string {
	return s.path
}

// Resolve produces a usable bearer token without any network round-trip.
// Source order: the override (an operator-supplied value, accepted without
// validation), then the cache slot. Returns ErrNoCredential when neither
// yields a token.
func (s *Store) Resolve(override string) (string, error) {
	if override != "" {
		s.logger.Debug("using token from override, cache slot bypassed")
		return override, nil
	}

	token, err := s.Load()
	if err != nil {
		return "", err
	}

	if token == "" {
		return "", ErrNoCredential
	}

	return token, nil
}

// Save writes the token verbatim to the cache slot and restricts the slot
// to owner read/write. Callers treat a failure as a warning: the in-memory
// token from the current session remains usable.
func (s *Store) Save(token string) error {
	if err := os.WriteFile(s.path, []byte(token), SlotPerms); err != nil {
		return fmt.Errorf("credstore: writing %s: %w", s.path, err)
	}

	// WriteFile only applies the mode on creation; an existing slot keeps
	// its old mode, so tighten it explicitly.
	if err := os.Chmod(s.path, SlotPerms); err != nil {
		return fmt.Errorf("credstore: restricting %s: %w", s.path, err)
	}

	s.logger.Debug("token saved", "path", s.path)

	return nil
}

// Load reads the cache slot and validates its contents. Returns ("", nil)
// when the slot is missing, unreadable, or holds an expired token; in the
// latter two cases the slot is deleted best-effort so the next resolution
// starts clean. A deletion failure is swallowed — the slot will be judged
// invalid again on the next read.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		s.logger.Warn("cache slot unreadable, removing", "path", s.path, "error", err)
		_ = os.Remove(s.path)

		return "", nil
	}

	token := strings.TrimSpace(string(data))

	if s.IsExpired(token) {
		s.logger.Info("cached token expired, removing slot", "path", s.path)

		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Warn("could not remove expired cache slot", "path", s.path, "error", rmErr)
		}

		return "", nil
	}

	s.logger.Debug("using cached token", "path", s.path)

	return token, nil
}

// Delete removes the cache slot. Missing slot is not an error.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credstore: removing %s: %w", s.path, err)
	}

	return nil
}

// IsExpired reports whether the token should be treated as expired. Any
// token that cannot be decoded counts as expired — an unparseable token is
// never trusted. The boundary is inclusive: a token expiring at exactly
// the current second is already expired.
func (s *Store) IsExpired(token string) bool {
	claims, err := parseClaims(token)
	if err != nil {
		return true
	}

	return s.now().Unix() >= claims.Exp
}

// claims is the subset of the JWT payload the store cares about.
type claims struct {
	Exp int64 `json:"exp"`
}

// parseClaims decodes the payload segment of a compact JWT and extracts the
// expiry claim. Returns ErrMalformedToken when the token does not split
// into three base64-decodable segments holding a JSON object, and
// ErrMissingExpiry when the payload carries no exp field.
func parseClaims(token string) (*claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != jwtSegments {
		return nil, ErrMalformedToken
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, ErrMalformedToken
	}

	// Decode into a raw map first so an absent exp is distinguishable from
	// a literal zero.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ErrMalformedToken
	}

	expRaw, ok := raw["exp"]
	if !ok {
		return nil, ErrMissingExpiry
	}

	var c claims
	if err := json.Unmarshal(expRaw, &c.Exp); err != nil {
		return nil, ErrMalformedToken
	}

	return &c, nil
}

// decodeSegment base64-decodes one JWT segment. Segments are emitted
// without padding, so pad to a multiple of 4 first. JWTs use the URL-safe
// alphabet, but tokens re-encoded by other tooling sometimes carry the
// standard alphabet, so fall back to it before giving up.
func decodeSegment(seg string) ([]byte, error) {
	if rem := len(seg) % 4; rem != 0 {
		seg += strings.Repeat("=", 4-rem)
	}

	data, err := base64.URLEncoding.DecodeString(seg)
	if err == nil {
		return data, nil
	}

	return base64.StdEncoding.DecodeString(seg)
}
