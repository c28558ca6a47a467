package timing

import (
	"cmp"
	"net/url"
	"slices"

	"github.com/nao1215/pageaudit/internal/model"
)

// DefaultTopN is the number of slowest resources kept per page.
const DefaultTopN = 5

// CollectTop returns at most n samples that satisfy filter, ordered by
// duration descending. Samples with equal durations keep their input order.
// A nil filter keeps every sample with a well-formed absolute URL.
// The input slice is not modified.
func CollectTop(samples []model.ResourceSample, n int, filter Filter) []model.ResourceSample {
	if n <= 0 {
		return []model.ResourceSample{}
	}

	kept := make([]model.ResourceSample, 0, len(samples))
	for _, s := range samples {
		u, ok := parseAbsolute(s.Name)
		if !ok {
			continue
		}
		if filter != nil && !filter(u) {
			continue
		}
		kept = append(kept, s)
	}

	slices.SortStableFunc(kept, func(a, b model.ResourceSample) int {
		return cmp.Compare(b.Duration, a.Duration)
	})

	if len(kept) > n {
		kept = kept[:n]
	}
	return kept
}

// parseAbsolute parses raw and requires a scheme and host.
func parseAbsolute(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}
