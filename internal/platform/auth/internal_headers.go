package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/httpserver"
)

const (
	HeaderAuthTimestamp = "X-Entremove-Auth-Ts"
	HeaderAuthSignature = "X-Entremove-Auth-Sig"

	DefaultMaxSkew = 5 * time.Minute
)

// ComputeSignature signs the request identity shared between the scheduler
// and the orchestrator. The canonical message is ts|METHOD|path|request-id.
func ComputeSignature(secret string, ts string, method string, path string, requestID string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("internal auth secret is required")
	}
	if strings.TrimSpace(ts) == "" {
		return "", errors.New("timestamp is required")
	}
	msg := canonical(ts, method, path, requestID)
	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write([]byte(msg)); err != nil {
		return "", fmt.Errorf("hmac: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func VerifySignature(secret string, ts string, method string, path string, requestID string, signature string) error {
	expected, err := ComputeSignature(secret, ts, method, path, requestID)
	if err != nil {
		return err
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errors.New("signature is required")
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("invalid signature")
	}
	return nil
}

func VerifyTimestamp(ts string, now time.Time, maxSkew time.Duration) error {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return errors.New("timestamp is required")
	}
	parsed, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	if maxSkew <= 0 {
		return nil
	}

	tsTime := time.Unix(parsed, 0).UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if tsTime.After(now.Add(maxSkew)) || tsTime.Before(now.Add(-maxSkew)) {
		return errors.New("timestamp outside allowed skew")
	}
	return nil
}

// Middleware rejects requests whose HMAC headers do not verify. An empty
// secret disables verification (local development).
func Middleware(secret string, maxSkew time.Duration, next http.Handler) http.Handler {
	if strings.TrimSpace(secret) == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts := r.Header.Get(HeaderAuthTimestamp)
		sig := r.Header.Get(HeaderAuthSignature)
		requestID := r.Header.Get("X-Request-Id")

		if err := VerifyTimestamp(ts, time.Now().UTC(), maxSkew); err != nil {
			httpserver.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if err := VerifySignature(secret, ts, r.Method, r.URL.Path, requestID, sig); err != nil {
			httpserver.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func canonical(ts string, method string, path string, requestID string) string {
	parts := []string{
		strings.TrimSpace(ts),
		strings.ToUpper(strings.TrimSpace(method)),
		strings.TrimSpace(path),
		strings.TrimSpace(requestID),
	}
	return strings.Join(parts, "|")
}
