package ratelimit

import "strings"

// unlimited marks paths that never count against a bucket. Load
// balancer probes hit /health continuously.
func unlimited(path, method string) bool {
	return path == "/health" && method == "GET"
}

// MatchEndpoint resolves a request path and method to a rate limit
// rule, or nil for the default. Exact rules win over prefix rules; a
// rule whose path ends in "/" matches by prefix ("/startups/" covers
// "/startups/{id}" and everything under it), and the longest matching
// prefix wins.
func MatchEndpoint(path string, method string, rules []EndpointConfig) *EndpointConfig {
	if unlimited(path, method) {
		return &EndpointConfig{}
	}

	for i := range rules {
		rule := &rules[i]
		if rule.Path == path && rule.Method == method {
			return rule
		}
	}

	var best *EndpointConfig
	for i := range rules {
		rule := &rules[i]
		if rule.Method != method || !strings.HasSuffix(rule.Path, "/") {
			continue
		}
		if !strings.HasPrefix(path, rule.Path) {
			continue
		}
		if best == nil || len(rule.Path) > len(best.Path) {
			best = rule
		}
	}
	return best
}
