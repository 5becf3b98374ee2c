// internal/handler/tracking_handler.go
package handler

import (
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/service"
)

// transparent 1x1 GIF served for open tracking
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingHandler serves the pixel and redirect endpoints hit by email
// clients. The remote caller is a passive rendering agent: it always gets
// its pixel or redirect immediately and never sees a tracking error.
// Recording happens in a goroutine after the response is decided.
type TrackingHandler struct {
	Tracking *service.TrackingService

	// FallbackURL is where clicks land when the encoded destination is
	// absent or does not decode to a usable URL.
	FallbackURL string
}

// Open serves the 1x1 pixel. Always 200, whatever happens internally.
func (h *TrackingHandler) Open(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	ua := r.UserAgent()
	ip := clientIP(r)

	if token != "" {
		go h.Tracking.RecordOpen(token, ua, ip)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(trackingPixel)
}

// Click records the follow and redirects. The redirect happens even when
// recording fails or the token is unknown; tracking must never break the
// underlying link.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	ua := r.UserAgent()
	ip := clientIP(r)

	dest := h.decodeDestination(r.URL.Query().Get("u"))

	if token != "" {
		go h.Tracking.RecordClick(token, dest, ua, ip)
	}

	http.Redirect(w, r, dest, http.StatusFound)
}

// decodeDestination unwraps the base64url destination and falls back to a
// safe default when it is absent or unparseable.
func (h *TrackingHandler) decodeDestination(encoded string) string {
	fallback := h.FallbackURL
	if fallback == "" {
		fallback = "/"
	}
	if encoded == "" {
		return fallback
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// tolerate padded input from older link builders
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return fallback
		}
	}
	u, err := url.Parse(string(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fallback
	}
	return u.String()
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
