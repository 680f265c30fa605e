// Package geo estimates patient-to-doctor distances from partial addresses and
// orders doctors by them.
package geo

import (
	"math"
	"strings"

	"github.com/jwalitptl/clinic-api/internal/model"
)

const earthRadiusKm = 6371.0

// Distances returned by Estimate, in kilometers.
const (
	SameLocationKm = 0.1
	SameStateKm    = 100.0
	Postal3Km      = 50.0
	Postal2Km      = 150.0
	DefaultKm      = 200.0
	FaultKm        = 150.0
)

// Sentinels used by callers. Estimate never returns either.
const (
	UnknownDistance     = 999.0
	UnavailableDistance = -1.0
)

// Estimate returns the distance between two addresses using, in order, the
// coordinate, city, state and postal-prefix tiers, then DefaultKm. It never
// fails and always returns a positive value.
func Estimate(patient, doctor model.Address) (km float64) {
	defer func() {
		if r := recover(); r != nil {
			km = FaultKm
		}
	}()

	km = estimate(patient, doctor)
	if !(km > 0) || math.IsInf(km, 0) {
		return FaultKm
	}
	return km
}

func estimate(a, b model.Address) float64 {
	if lat1, lon1, ok := coordinates(a); ok {
		if lat2, lon2, ok := coordinates(b); ok {
			if lat1 == lat2 && lon1 == lon2 {
				return SameLocationKm
			}
			return math.Max(haversine(lat1, lon1, lat2, lon2), SameLocationKm)
		}
	}

	if ca, cb := normalizeCity(a.City), normalizeCity(b.City); ca != "" && ca == cb {
		return SameLocationKm
	}

	if sa, sb := normalize(a.State), normalize(b.State); sa != "" && sa == sb {
		return SameStateKm
	}

	pa, pb := []rune(strings.TrimSpace(a.PostalCode)), []rune(strings.TrimSpace(b.PostalCode))
	if len(pa) >= 3 && len(pb) >= 3 {
		if string(pa[:3]) == string(pb[:3]) {
			return Postal3Km
		}
		if string(pa[:2]) == string(pb[:2]) {
			return Postal2Km
		}
	}

	return DefaultKm
}

func coordinates(a model.Address) (lat, lon float64, ok bool) {
	if a.Latitude == nil || a.Longitude == nil {
		return 0, 0, false
	}
	lat, lon = *a.Latitude, *a.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h just past 1 for near-antipodal points.
	h = math.Min(1, math.Max(0, h))

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// normalizeCity keeps the text before the first comma, so "Mumbai, Maharashtra"
// matches "mumbai".
func normalizeCity(city string) string {
	if i := strings.IndexByte(city, ','); i >= 0 {
		city = city[:i]
	}
	return normalize(city)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
