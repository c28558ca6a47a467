package timing

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/nao1215/pageaudit/internal/model"
)

func sample(name string, d float64) model.ResourceSample {
	return model.ResourceSample{Name: name, Duration: d, InitiatorType: "script"}
}

func names(samples []model.ResourceSample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Name
	}
	return out
}

// TestCollectTop tests ranking, filtering and truncation.
func TestCollectTop(t *testing.T) {
	t.Parallel()

	t.Run("host filter drops foreign resources", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{
			sample("https://forbes.com/a", 120),
			sample("https://forbes.com/b", 300),
			sample("https://x.com/c", 999),
		}
		got := names(CollectTop(in, 5, HostContains("forbes.com")))
		want := []string{"https://forbes.com/b", "https://forbes.com/a"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("truncates to n", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{
			sample("https://forbes.com/1", 1),
			sample("https://forbes.com/2", 2),
			sample("https://forbes.com/3", 3),
		}
		got := names(CollectTop(in, 2, nil))
		want := []string{"https://forbes.com/3", "https://forbes.com/2"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("ties keep input order", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{
			sample("https://forbes.com/first", 50),
			sample("https://forbes.com/slow", 80),
			sample("https://forbes.com/second", 50),
			sample("https://forbes.com/third", 50),
		}
		got := names(CollectTop(in, 10, nil))
		want := []string{
			"https://forbes.com/slow",
			"https://forbes.com/first",
			"https://forbes.com/second",
			"https://forbes.com/third",
		}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("malformed URLs are excluded", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{
			sample("not a url", 900),
			sample("/relative/path.js", 800),
			sample("https://forbes.com/%zz", 700),
			sample("", 600),
			sample("https://forbes.com/ok.js", 10),
		}
		got := names(CollectTop(in, 5, nil))
		want := []string{"https://forbes.com/ok.js"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("repeated URLs are kept separately", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{
			sample("https://forbes.com/a.js", 10),
			sample("https://forbes.com/a.js", 20),
		}
		if got := CollectTop(in, 5, nil); len(got) != 2 {
			t.Errorf("expected 2 samples, got %d", len(got))
		}
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		t.Parallel()

		got := CollectTop(nil, 5, HostContains("forbes.com"))
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("non-positive n yields empty output", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{sample("https://forbes.com/a", 1)}
		if got := CollectTop(in, 0, nil); len(got) != 0 {
			t.Errorf("expected empty, got %v", got)
		}
		if got := CollectTop(in, -1, nil); len(got) != 0 {
			t.Errorf("expected empty, got %v", got)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		t.Parallel()

		in := []model.ResourceSample{
			sample("https://forbes.com/a", 1),
			sample("https://forbes.com/b", 2),
		}
		before := slices.Clone(in)
		_ = CollectTop(in, 5, nil)
		if !slices.Equal(in, before) {
			t.Errorf("input changed: %v", in)
		}
	})
}

// TestCollectTopProperties checks ordering and size bounds over random feeds.
func TestCollectTopProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	hosts := []string{"https://www.forbes.com/", "https://cdn.example.net/", "::bad::"}
	filter := HostContains("forbes.com")

	for iter := range 200 {
		size := rng.IntN(30)
		in := make([]model.ResourceSample, size)
		passing := 0
		for i := range in {
			host := hosts[rng.IntN(len(hosts))]
			in[i] = sample(host+"r", float64(rng.IntN(20)))
			if host == hosts[0] {
				passing++
			}
		}
		n := rng.IntN(8)

		got := CollectTop(in, n, filter)

		if len(got) > min(n, passing) {
			t.Fatalf("iteration %d: len %d exceeds min(%d, %d)", iter, len(got), n, passing)
		}
		if len(got) != min(n, passing) {
			t.Fatalf("iteration %d: len %d, expected %d", iter, len(got), min(n, passing))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Duration > got[i-1].Duration {
				t.Fatalf("iteration %d: not descending at %d: %v", iter, i, got)
			}
		}
	}
}
