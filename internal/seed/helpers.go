package seed

import (
	"math/rand"
	"sort"
	"strings"
)

func sortedSlugs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func pick(rng *rand.Rand, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[rng.Intn(len(values))]
}

// pickN returns n distinct values in a random order.
func pickN(rng *rand.Rand, values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	perm := rng.Perm(len(values))[:n]
	out := make([]string, n)
	for i, idx := range perm {
		out[i] = values[idx]
	}
	return out
}

// titleOf turns a slug back into a display name.
func titleOf(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func singular(s string) string {
	return strings.TrimSuffix(s, "s")
}
