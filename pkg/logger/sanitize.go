package logger

import (
	"net/url"
	"strings"
)

var sensitiveParams = map[string]bool{
	"pin":           true,
	"password":      true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"secret":        true,
	"apikey":        true,
	"api_key":       true,
	"auth":          true,
}

// SanitizedEmail masks an email address for logging (e.g., "a**@i*******.local")
func SanitizedEmail(email string) string {
	username, domain, ok := strings.Cut(email, "@")
	if !ok || username == "" || domain == "" {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	// keep the TLD
	domainParts := strings.Split(domain, ".")
	for i := 0; i < len(domainParts)-1; i++ {
		if len(domainParts[i]) > 1 {
			domainParts[i] = domainParts[i][:1] + strings.Repeat("*", len(domainParts[i])-1)
		}
	}

	return username + "@" + strings.Join(domainParts, ".")
}

// SanitizeQueryString reports whether a raw query carries a sensitive parameter
// and must be redacted from request logs. Unparseable queries are redacted.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}
	for key := range values {
		if sensitiveParams[strings.ToLower(key)] {
			return true
		}
	}
	return false
}
