package router

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// clientIPHeaders are consulted in order; the first valid address wins.
var clientIPHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

// middlewareIP rewrites RemoteAddr to the client address reported by the
// proxy in front of the service, so audit logs carry the guardian's address.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := clientIP(r); ip.IsValid() {
			r.RemoteAddr = ip.String()
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) netip.Addr {
	for _, h := range clientIPHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For lists the original client first.
		first, _, _ := strings.Cut(v, ",")
		if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return ip.Unmap()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return ip.Unmap()
}
