package ledger

import "strings"

var specialtyFees = map[string]float64{
	"general physician": 200,
	"gynaecology":       500,
	"dermatology":       500,
	"gastrology":        200,
	"psychiatry":        200,
	"child care":        500,
	"urology":           500,
	"cold & fever":      500,
}

// SpecialtyFee is the fixed per-slot fee patients pay for a specialty.
// Unlisted specialties cost nothing.
func SpecialtyFee(specialty string) float64 {
	return specialtyFees[strings.ToLower(strings.TrimSpace(specialty))]
}

// Specialties lists the specialties with a fee tier.
func Specialties() []string {
	return []string{
		"General Physician",
		"Gynaecology",
		"Dermatology",
		"Gastrology",
		"Psychiatry",
		"Child Care",
		"Urology",
		"Cold & Fever",
	}
}
