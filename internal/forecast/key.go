package forecast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"meteo-locator/internal/types"
)

const coordinateKeyPrefix = "lat_"

// KeyFor derives the storage key of a resolved location.
//
// City mode uses the place text as asked for, trimmed and lower-cased, with
// each whitespace rune turned into "_". Other punctuation is kept as is.
// Path separators, "%", ":" and control runes are percent-encoded, as are
// the keys "." and "..", so the key is always a single path element. A city
// key that would start like a coordinate key has its first rune encoded too.
//
// Lat/lon mode uses lat_<lat>_lon_<lon> with "." written as "_" and "-" as
// "m". Coordinates are printed with the shortest decimal form that
// round-trips a float64, so distinct pairs never share a key.
func KeyFor(loc types.ResolvedLocation) string {
	if loc.Mode == types.ModeLatLon {
		return coordinateKey(loc.Coordinates)
	}

	name := strings.TrimSpace(loc.Query)
	if name == "" {
		name = strings.TrimSpace(loc.Name)
	}
	return cityKey(name)
}

func cityKey(name string) string {
	name = strings.ToLower(name)

	switch name {
	case ".", "..":
		return strings.Repeat(escapeRune('.'), len(name))
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r == '/', r == '\\', r == '%', r == ':', unicode.IsControl(r):
			b.WriteString(escapeRune(r))
		default:
			b.WriteRune(r)
		}
	}

	key := b.String()
	if strings.HasPrefix(key, coordinateKeyPrefix) {
		key = escapeRune(rune(key[0])) + key[1:]
	}
	return key
}

func escapeRune(r rune) string {
	var b strings.Builder
	for _, c := range []byte(string(r)) {
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func coordinateKey(c types.Coords) string {
	key := coordinateKeyPrefix + formatCoordinate(c.Latitude) + "_lon_" + formatCoordinate(c.Longitude)
	return strings.NewReplacer(".", "_", "-", "m").Replace(key)
}

func formatCoordinate(v float64) string {
	if v == 0 {
		// fold -0 into 0
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
