package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// sigHeader carries the processor's HMAC-SHA256 signature over the raw
// request body, prefixed with "sha256=".
const sigHeader = "BTCPay-Sig"

// verifySignature authenticates webhook deliveries. The body is consumed
// for the HMAC computation and restored for the handler.
func (h *Handlers) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(h.webhookSecret))
		mac.Write(body)
		want := mac.Sum(nil)

		got, err := hex.DecodeString(strings.TrimPrefix(r.Header.Get(sigHeader), "sha256="))
		if err != nil || !hmac.Equal(want, got) {
			h.log.Warnw("webhook signature verification failed", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireInternalKey guards the provisioning and admin endpoints.
func (h *Handlers) requireInternalKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Internal-Key")
		if key == "" || !subtleCompare(key, h.internalKey) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func subtleCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
