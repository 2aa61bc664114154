package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

// hostSet is the normalized allow list of judge endpoint hosts.
type hostSet map[string]struct{}

// newHostSet reduces allow-list entries to bare hostnames. Entries may be
// written as hosts, host:port pairs or full URLs; anything that does not
// yield a hostname is ignored. An empty result falls back to the OpenRouter
// hosts so a run is never silently allowed to talk anywhere.
func newHostSet(hosts []string) hostSet {
	set := make(hostSet, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if !strings.Contains(h, "//") {
			h = "//" + h
		}
		u, err := url.Parse(h)
		if err != nil || u.Hostname() == "" {
			continue
		}
		set[u.Hostname()] = struct{}{}
	}
	if len(set) == 0 {
		return hostSet{"openrouter.ai": {}, "api.openrouter.ai": {}}
	}
	return set
}

func (s hostSet) contains(host string) bool {
	_, ok := s[host]
	return ok
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL rejects judge endpoints outside the allow list before a
// run starts, so a misconfigured base URL can never leak the API key.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid judge base_url: %w", err)
	}
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return fmt.Errorf("invalid judge base_url %q: absolute URL with host is required", baseURL)
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("invalid judge base_url %q: https is required", baseURL)
	case u.User != nil:
		return fmt.Errorf("invalid judge base_url %q: userinfo is not allowed", baseURL)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("invalid judge base_url %q: query and fragment are not allowed", baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if !newHostSet(allowedHosts).contains(host) {
		return fmt.Errorf("invalid judge base_url %q: host %q is not in judge.allowed_hosts", baseURL, host)
	}
	return nil
}
