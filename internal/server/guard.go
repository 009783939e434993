package server

import (
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// localOnly rejects browser requests from pages outside this machine and
// POST bodies that are not JSON. Requests without an Origin header, such as
// curl or the console, pass. The websocket route does its own origin check.
func localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !localOrigin(origin, r.Host) {
			trace.Logger(r.Context()).Warn("rejected cross-origin request",
				"origin", origin, "method", r.Method, "path", r.URL.Path)
			writeError(w, r, apperrors.Newf(apperrors.PermissionDenied, "origin %q not allowed", origin))
			return
		}
		if r.Method == http.MethodPost && hasBody(r) && !jsonContent(r) {
			writeError(w, r, apperrors.Newf(apperrors.UnsupportedMediaType,
				"content type %q not supported; use application/json", r.Header.Get("Content-Type")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// localOrigin accepts loopback hosts and the host the request was sent to.
func localOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	switch h := u.Hostname(); {
	case strings.EqualFold(h, "localhost"):
		return true
	default:
		ip := net.ParseIP(h)
		return ip != nil && ip.IsLoopback()
	}
}

func hasBody(r *http.Request) bool {
	return r.ContentLength != 0 || r.Header.Get("Content-Type") != ""
}

func jsonContent(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
