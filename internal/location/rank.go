package location

import (
	"cmp"
	"slices"
	"strings"

	"meteo-locator/internal/types"

	"github.com/samber/lo"
)

// unknownPopulation is the sort weight of candidates without a usable population
const unknownPopulation = -1

// Hints narrow down a set of candidates. Every hint is soft: a hint that
// would leave no candidates is ignored.
type Hints struct {
	CountryCode string
	State       string
	County      string
}

type predicate func(types.GeoCandidate) bool

// Rank applies the country, state and county hints in that order, then sorts
// the survivors by population, largest first. Ties keep their input order.
// The input slice is not modified.
func Rank(candidates []types.GeoCandidate, hints Hints) []types.GeoCandidate {
	ranked := slices.Clone(candidates)

	ranked = softFilter(ranked, matchField(hints.CountryCode, func(c types.GeoCandidate) string { return c.CountryCode }))
	ranked = softFilter(ranked, matchField(hints.State, func(c types.GeoCandidate) string { return c.Admin1 }))
	ranked = softFilter(ranked, matchField(hints.County, func(c types.GeoCandidate) string { return c.Admin2 }))

	slices.SortStableFunc(ranked, func(a, b types.GeoCandidate) int {
		return cmp.Compare(populationWeight(b), populationWeight(a))
	})

	return ranked
}

// softFilter keeps the candidates matching keep, or all of them when none match.
// A nil predicate means the hint was not given.
func softFilter(set []types.GeoCandidate, keep predicate) []types.GeoCandidate {
	if keep == nil {
		return set
	}
	filtered := lo.Filter(set, func(c types.GeoCandidate, _ int) bool {
		return keep(c)
	})
	if len(filtered) == 0 {
		return set
	}
	return filtered
}

func matchField(hint string, field func(types.GeoCandidate) string) predicate {
	want := normalize(hint)
	if want == "" {
		return nil
	}
	return func(c types.GeoCandidate) bool {
		return normalize(field(c)) == want
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func populationWeight(c types.GeoCandidate) int {
	if c.Population == nil {
		return unknownPopulation
	}
	return *c.Population
}
