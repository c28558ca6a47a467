package timing

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/pageaudit/internal/model"
)

// Filter decides whether a resource URL is kept.
type Filter func(u *url.URL) bool

// HostContains keeps URLs whose hostname contains substr (case-insensitive).
func HostContains(substr string) Filter {
	substr = strings.ToLower(substr)
	return func(u *url.URL) bool {
		return strings.Contains(strings.ToLower(u.Hostname()), substr)
	}
}

// URLContains keeps URLs whose host followed by path contains substr,
// e.g. "forbes.com/advisor/au/".
func URLContains(substr string) Filter {
	substr = strings.ToLower(substr)
	return func(u *url.URL) bool {
		return strings.Contains(strings.ToLower(u.Hostname()+u.EscapedPath()), substr)
	}
}

// PathPrefix keeps URLs whose path starts with prefix.
func PathPrefix(prefix string) Filter {
	return func(u *url.URL) bool {
		return strings.HasPrefix(u.Path, prefix)
	}
}

// SameSite keeps URLs on the same registrable domain (eTLD+1) as host.
// If host has no registrable domain, only exact host matches are kept.
func SameSite(host string) Filter {
	host = strings.ToLower(host)
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return func(u *url.URL) bool {
			return strings.EqualFold(u.Hostname(), host)
		}
	}
	return func(u *url.URL) bool {
		other, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(u.Hostname()))
		if err != nil {
			return false
		}
		return other == site
	}
}

// All keeps URLs accepted by every filter. With no filters it keeps everything.
func All(filters ...Filter) Filter {
	return func(u *url.URL) bool {
		for _, f := range filters {
			if !f(u) {
				return false
			}
		}
		return true
	}
}

// Any keeps URLs accepted by at least one filter.
func Any(filters ...Filter) Filter {
	return func(u *url.URL) bool {
		for _, f := range filters {
			if f(u) {
				return true
			}
		}
		return false
	}
}

// FromConfig builds a Filter from its declarative form. pageURL is the page
// being audited and is required only when rf.SameSite is set. An empty
// filter returns nil, which CollectTop treats as keep-all.
func FromConfig(rf model.ResourceFilter, pageURL string) (Filter, error) {
	if rf.IsZero() {
		return nil, nil
	}

	var filters []Filter
	if rf.HostContains != "" {
		filters = append(filters, HostContains(rf.HostContains))
	}
	if rf.URLContains != "" {
		filters = append(filters, URLContains(rf.URLContains))
	}
	if rf.PathPrefix != "" {
		filters = append(filters, PathPrefix(rf.PathPrefix))
	}
	if rf.SameSite {
		u, ok := parseAbsolute(pageURL)
		if !ok {
			return nil, fmt.Errorf("same-site filter needs an absolute page URL, got %q", pageURL)
		}
		filters = append(filters, SameSite(u.Hostname()))
	}
	return All(filters...), nil
}
