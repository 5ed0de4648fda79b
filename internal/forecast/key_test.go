package forecast

import (
	"fmt"
	"math"
	"testing"

	"meteo-locator/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name string
		loc  types.ResolvedLocation
		want string
	}{
		{
			name: "city",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: "Campinas", Name: "Campinas"},
			want: "campinas",
		},
		{
			name: "city with spaces keeps accents",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: "  São Paulo "},
			want: "são_paulo",
		},
		{
			name: "every whitespace rune is replaced",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: "Rio  de\tJaneiro"},
			want: "rio__de_janeiro",
		},
		{
			name: "path separators never escape the base directory",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: "../etc/passwd"},
			want: "..%2Fetc%2Fpasswd",
		},
		{
			name: "dot names are encoded",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: ".."},
			want: "%2E%2E",
		},
		{
			name: "backslash and colon are encoded",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: `C:\Temp`},
			want: "c%3A%5Ctemp",
		},
		{
			name: "punctuation is kept",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: "St. Louis"},
			want: "st._louis",
		},
		{
			name: "city text shaped like coordinates",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Query: "Lat 1 lon 2"},
			want: "%6Cat_1_lon_2",
		},
		{
			name: "falls back to the resolved name",
			loc:  types.ResolvedLocation{Mode: types.ModeCity, Name: "Belo Horizonte"},
			want: "belo_horizonte",
		},
		{
			name: "negative coordinates",
			loc:  types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: types.NewCoords(-23.5, -46.6)},
			want: "lat_m23_5_lon_m46_6",
		},
		{
			name: "positive integer coordinates",
			loc:  types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: types.NewCoords(10, 20)},
			want: "lat_10_lon_20",
		},
		{
			name: "negative zero is zero",
			loc:  types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: types.NewCoords(math.Copysign(0, -1), 0)},
			want: "lat_0_lon_0",
		},
		{
			name: "full precision is kept",
			loc:  types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: types.NewCoords(-22.905560001, 0.000001)},
			want: "lat_m22_905560001_lon_0_000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyFor(tt.loc))
		})
	}
}

func TestKeyFor_DistinctCoordinatesDistinctKeys(t *testing.T) {
	pairs := []types.Coords{
		types.NewCoords(1.5, 2),
		types.NewCoords(1, 5.2),
		types.NewCoords(-1.5, 2),
		types.NewCoords(1.5, -2),
		types.NewCoords(15, 2),
		types.NewCoords(1.5, 2.0000000001),
		types.NewCoords(math.Nextafter(1.5, 2), 2),
	}

	seen := map[string]types.Coords{}
	for _, c := range pairs {
		key := KeyFor(types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: c})
		if prev, ok := seen[key]; ok {
			t.Fatalf("coordinates %+v and %+v share key %q", prev, c, key)
		}
		seen[key] = c
	}
}

func TestKeyFor_CityKeysStayDistinct(t *testing.T) {
	cities := []string{
		"St. Louis",
		"St  Louis",
		"St Louis",
		"lat 1 lon 2",
		"a/b",
		"a%2Fb",
		"..",
		"%2E%2E",
	}

	seen := map[string]string{
		KeyFor(types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: types.NewCoords(1, 2)}): "coordinates (1, 2)",
	}
	for _, city := range cities {
		key := KeyFor(types.ResolvedLocation{Mode: types.ModeCity, Query: city})
		if prev, ok := seen[key]; ok {
			t.Fatalf("%q and %s share key %q", city, prev, key)
		}
		seen[key] = fmt.Sprintf("%q", city)
	}
}
