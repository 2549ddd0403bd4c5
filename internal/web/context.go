package web

import (
	"context"
	"net"
	"net/http"

	"github.com/ArmandoRuiz13/registro/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for the history journal.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, clientIP(r), r.UserAgent())
}

// clientIP is RemoteAddr without the port. TrustedRealIP has already
// replaced it with the forwarded address when the request came via a proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
