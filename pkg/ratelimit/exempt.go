package ratelimit

import (
	"net"
	"strings"
	"sync"

	"go-vortexguard/pkg/logger"
)

// Exempt lists networks whose clients are never rate limited, such as
// internal health checkers.
type Exempt struct {
	nets []*net.IPNet
	mu   sync.RWMutex
}

func NewExempt(ips []string) *Exempt {
	e := &Exempt{
		nets: make([]*net.IPNet, 0),
	}
	if len(ips) > 0 {
		e.Update(ips)
	}
	return e
}

// Update replaces the list. Bare addresses are treated as single-host networks.
func (e *Exempt) Update(ips []string) {
	nets := make([]*net.IPNet, 0, len(ips))

	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if !strings.Contains(ip, "/") {
			if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() == nil {
				ip += "/128"
			} else {
				ip += "/32"
			}
		}

		_, ipnet, err := net.ParseCIDR(ip)
		if err != nil {
			logger.Log.Errorf("invalid exempt network %s: %v", ip, err)
			continue
		}
		nets = append(nets, ipnet)
		logger.Log.Debugf("rate limit exemption added: %s", ipnet.String())
	}

	e.mu.Lock()
	e.nets = nets
	e.mu.Unlock()

	logger.Log.Infof("rate limit exemptions updated, %d networks", len(nets))
}

func (e *Exempt) ContainsIP(ipStr string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.nets) == 0 {
		return false
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, ipnet := range e.nets {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}
