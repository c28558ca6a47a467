package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces redacted values.
const MaskValue = "***REDACTED***"

// credentialKeys are attribute keys and URL query parameters that always hold secrets.
var credentialKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"api_key":             true,
	"apikey":              true,
	"access_token":        true,
	"id_token":            true,
	"refresh_token":       true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
	"sid":                 true,
	"sig":                 true,
	"signature":           true,
	"password":            true,
}

// credentialKeywords mark a key as sensitive when contained anywhere in it.
// The bare word "key" is not listed; it matches too many harmless names.
var credentialKeywords = []string{"password", "secret", "token", "auth", "cookie", "credential"}

// credentialValues match values that are secrets whatever their key.
var credentialValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// RedactingHandler wraps an slog.Handler and masks credentials in record
// attributes before passing them on.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next. A nil next uses slog.Default().Handler().
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &RedactingHandler{next: next}
}

// Enabled delegates to the wrapped handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle redacts the record's attributes and forwards it.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redact(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

// WithAttrs redacts attrs and returns a handler that carries them.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(clean)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

// redact masks a single attribute, descending into groups.
func redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isCredentialKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		if isCredentialValue(v) {
			return slog.String(a.Key, MaskValue)
		}
		if cleaned, changed := redactURL(v); changed {
			return slog.String(a.Key, cleaned)
		}
	}
	return a
}

// isCredentialKey reports whether key names a credential.
func isCredentialKey(key string) bool {
	key = strings.ToLower(key)
	if credentialKeys[key] {
		return true
	}
	for _, kw := range credentialKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// isCredentialValue reports whether value looks like a secret.
func isCredentialValue(value string) bool {
	for _, re := range credentialValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURL masks credential query parameters and userinfo passwords in an
// absolute URL. It reports whether anything was masked.
func redactURL(raw string) (string, bool) {
	if !strings.Contains(raw, "://") {
		return raw, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, false
	}

	changed := false
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), MaskValue)
		changed = true
	}

	q := u.Query()
	for name := range q {
		if isCredentialKey(name) {
			q.Set(name, MaskValue)
			changed = true
		}
	}
	if !changed {
		return raw, false
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

// Options configures New.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON selects JSON output instead of logfmt-style text.
	JSON bool
}

// New returns a logger writing to w with credential redaction.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	return slog.New(NewRedactingHandler(h))
}
