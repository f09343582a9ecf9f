package log

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveNames are attribute keys and header names whose values are
// always masked. Matching is case-insensitive.
var sensitiveNames = []string{
	// request customization configured for a site
	"authorization", "proxy-authorization", "cookie", "set-cookie",
	"x-api-key", "x-auth-token", "x-csrf-token",

	// session identifiers
	"session", "session_id", "sessionid", "sid", "jsessionid",

	// key material
	"api_key", "apikey", "api-key", "access_token", "refresh_token",
	"private_key", "secret_key",
}

// sensitiveKeywords mask any key that contains them.
// The bare word "key" is left out: "cache_key" or "primary_key" are common
// and harmless, and the key-shaped secrets are listed in sensitiveNames.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns match values that are secrets whatever their key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// sensitiveQueryParams are query parameter names masked inside logged URLs.
// Crawled links and callback targets often carry signed or tokenized queries.
var sensitiveQueryParams = []string{
	"token", "access_token", "api_key", "apikey", "key", "sig", "signature",
	"password", "secret", "session", "sessionid", "auth", "code",
}

// SecureHandler wraps an slog.Handler and masks secrets before a record
// reaches it.
//
// A value is masked when its key is sensitive, when the value itself looks
// like a credential, or, for URLs, in the query parameters and userinfo
// password only. Header maps (map[string]string and http.Header) are masked
// per entry so the configured header names stay visible.
//
// Design decision: We use a handler wrapper rather than a custom logger so
// every component keeps taking a plain *slog.Logger.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler uses slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. The attributes are masked once here.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if masked, ok := maskURLQuery(s); ok {
			return slog.String(a.Key, masked)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]string:
			return slog.Any(a.Key, maskHeaderMap(v))
		case http.Header:
			return slog.Any(a.Key, maskHTTPHeader(v))
		}
	}
	return a
}

// maskHeaderMap returns a copy of headers with sensitive values masked.
func maskHeaderMap(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if isSensitiveKey(name) || isSensitiveValue(value) {
			value = MaskValue
		}
		out[name] = value
	}
	return out
}

// maskHTTPHeader returns a copy of h with sensitive values masked.
func maskHTTPHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if isSensitiveKey(name) {
			out[name] = []string{MaskValue}
			continue
		}
		masked := make([]string, len(values))
		for i, v := range values {
			if isSensitiveValue(v) {
				v = MaskValue
			}
			masked[i] = v
		}
		out[name] = masked
	}
	return out
}

// maskURLQuery masks credential-looking query parameters and userinfo
// passwords in an absolute http(s) URL. It reports whether anything changed.
func maskURLQuery(value string) (string, bool) {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return value, false
	}
	u, err := url.Parse(value)
	if err != nil {
		return value, false
	}

	changed := false
	maskPassword := false
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			// url.UserPassword would percent-encode the mask, so it is
			// spliced in after String.
			u.User = url.User(u.User.Username())
			maskPassword = true
			changed = true
		}
	}

	if u.RawQuery != "" {
		params := strings.Split(u.RawQuery, "&")
		for i, param := range params {
			name, _, _ := strings.Cut(param, "=")
			if unescaped, err := url.QueryUnescape(name); err == nil && slices.Contains(sensitiveQueryParams, strings.ToLower(unescaped)) {
				params[i] = name + "=" + MaskValue
				changed = true
			}
		}
		u.RawQuery = strings.Join(params, "&")
	}

	if !changed {
		return value, false
	}
	out := u.String()
	if maskPassword {
		scheme, rest, _ := strings.Cut(out, "://")
		at := strings.IndexByte(rest, '@')
		out = scheme + "://" + rest[:at] + ":" + MaskValue + rest[at:]
	}
	return out, true
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	return slices.Contains(sensitiveNames, key) || containsSensitiveKeyword(key)
}

// containsSensitiveKeyword reports whether key contains a sensitive keyword.
// key must already be lowercase.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
