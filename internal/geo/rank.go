package geo

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/clinic-api/internal/model"
)

type RankedDoctor struct {
	*model.Doctor
	Distance        float64 `json:"distance"`
	DistanceDisplay string  `json:"distance_display"`
}

// FormatDistance renders a distance for display. Only the two sentinels
// render as "N/A".
func FormatDistance(km float64) string {
	if km == UnavailableDistance || km == UnknownDistance {
		return "N/A"
	}
	return fmt.Sprintf("%.1f km", km)
}

// Score attaches the distance from patient to d. A nil patient address scores
// UnknownDistance.
func Score(patient *model.Address, d *model.Doctor) RankedDoctor {
	km := UnknownDistance
	if patient != nil {
		km = Estimate(*patient, d.Address)
	}
	return RankedDoctor{
		Doctor:          d,
		Distance:        km,
		DistanceDisplay: FormatDistance(km),
	}
}

// Rank scores every doctor against the patient address and orders them by
// (distance, doctor ID). A nil patient address ranks everyone at
// UnknownDistance, which leaves them ordered by ID.
func Rank(patient *model.Address, doctors []*model.Doctor) []RankedDoctor {
	ranked := make([]RankedDoctor, 0, len(doctors))
	for _, d := range doctors {
		if d == nil {
			continue
		}
		ranked = append(ranked, Score(patient, d))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})
	return ranked
}
