package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses rate limits for loopback and RFC 1918 clients,
// e.g. health probes and the email worker inside the cluster.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		return isInternal(ipFromCtx(c))
	}
}

// AllowCIDRs bypasses rate limits for clients inside any of the given networks.
// Unparseable entries are ignored.
func AllowCIDRs(cidrs ...string) AllowFunc {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, s := range cidrs {
		if _, n, err := net.ParseCIDR(s); err == nil {
			nets = append(nets, n)
		}
	}
	return func(c *gin.Context) bool {
		ip := net.ParseIP(ipFromCtx(c))
		if ip == nil {
			return false
		}
		for _, n := range nets {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}
}

// AnyOf bypasses when any of fns does. Nil entries are skipped; with none left it returns nil.
func AnyOf(fns ...AllowFunc) AllowFunc {
	var set []AllowFunc
	for _, f := range fns {
		if f != nil {
			set = append(set, f)
		}
	}
	if len(set) == 0 {
		return nil
	}
	return func(c *gin.Context) bool {
		for _, f := range set {
			if f(c) {
				return true
			}
		}
		return false
	}
}
