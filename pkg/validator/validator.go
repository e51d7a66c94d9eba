// Package validator checks untrusted lookup subjects before any outbound call.
package validator

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/seancfoley/ipaddress-go/ipaddr"

	"go-vortexguard/pkg/models"
)

const (
	maxIPLength  = 45
	maxURLLength = 2048
)

var (
	ipv4Pattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
	// Intentionally loose; it accepts some malformed IPv6 literals.
	ipv6Pattern = regexp.MustCompile(`^([0-9a-fA-F]{0,4}:){2,7}[0-9a-fA-F]{0,4}$`)

	privateRanges = buildRangeTrie(
		"0.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
	)
)

func buildRangeTrie(cidrs ...string) *ipaddr.IPv4AddressTrie {
	trie := &ipaddr.IPv4AddressTrie{}
	for _, cidr := range cidrs {
		addr, err := ipaddr.NewIPAddressString(cidr).ToAddress()
		if err != nil || !addr.IsIPv4() {
			panic("validator: bad range " + cidr)
		}
		trie.Add(addr.ToIPv4())
	}
	return trie
}

func invalid(msg string) models.ValidationResult {
	return models.ValidationResult{Valid: false, Error: msg}
}

// ValidateIP accepts a dotted-quad IPv4 address or a colon-grouped IPv6
// literal. Surrounding whitespace is ignored.
func ValidateIP(input string) models.ValidationResult {
	ip := strings.TrimSpace(input)
	if ip == "" {
		return invalid("Valid IP address is required")
	}
	if utf8.RuneCountInString(ip) > maxIPLength {
		return invalid("Invalid IP address format")
	}

	if m := ipv4Pattern.FindStringSubmatch(ip); m != nil {
		for _, octet := range m[1:] {
			n, err := strconv.Atoi(octet)
			if err != nil || n > 255 {
				return invalid("Invalid IP address format")
			}
		}
		return models.ValidationResult{Valid: true}
	}

	if ipv6Pattern.MatchString(ip) {
		return models.ValidationResult{Valid: true}
	}
	return invalid("Invalid IP address format")
}

// ValidateURL accepts absolute http(s) URLs whose host is not local or inside
// a private IPv4 range, so the scan provider is never pointed at internal hosts.
func ValidateURL(input string) models.ValidationResult {
	if input == "" {
		return invalid("Valid URL is required")
	}
	if utf8.RuneCountInString(input) > maxURLLength {
		return invalid("URL exceeds maximum length")
	}

	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" {
		return invalid("Invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("Only HTTP/HTTPS URLs are allowed")
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return invalid("Invalid URL format")
	}
	if hostname == "localhost" || isLoopback(hostname) {
		return invalid("Local addresses are not allowed")
	}

	if m := ipv4Pattern.FindStringSubmatch(hostname); m != nil {
		addr, err := ipaddr.NewIPAddressString(hostname).ToAddress()
		if err != nil || !addr.IsIPv4() {
			return invalid("Invalid URL format")
		}
		if privateRanges.ElementContains(addr.ToIPv4()) {
			return invalid("Private network addresses are not allowed")
		}
	}

	return models.ValidationResult{Valid: true}
}

func isLoopback(hostname string) bool {
	addr, err := ipaddr.NewIPAddressString(hostname).ToAddress()
	if err != nil || addr == nil {
		return false
	}
	return addr.IsLoopback()
}
