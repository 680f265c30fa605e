package model

import "strings"

const (
	DoctorBasePercent  = 25
	PatientBasePercent = 33
	// FullProfile is the percentage at which a profile counts as complete.
	FullProfile = 100
)

type profileItem struct {
	weight int
	set    bool
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func sumProfile(base int, items []profileItem) int {
	total := base
	for _, it := range items {
		if it.set {
			total += it.weight
		}
	}
	if total > FullProfile {
		return FullProfile
	}
	return total
}

// DoctorProfilePercent scores the doctor checklist. Fees always count, even at zero.
func DoctorProfilePercent(d *Doctor) int {
	return sumProfile(DoctorBasePercent, []profileItem{
		{7, filled(d.Specialty)},
		{7, true},
		{3, d.Age != nil},
		{3, d.Experience != nil},
		{7, filled(d.Qualification)},
		{7, filled(d.LicenseNumber)},
		{4, filled(d.Hospital)},
		{4, filled(d.City)},
		{4, filled(d.State)},
		{3, filled(d.Landmark)},
		{7, filled(d.Line)},
		{4, filled(d.PostalCode)},
		{3, d.Latitude != nil},
		{3, d.Longitude != nil},
		{3, d.StaffCount != nil},
		{3, filled(d.Languages)},
		{6, filled(d.Reviews)},
		{6, filled(d.Awards)},
		{5, filled(d.EmergencyContact)},
	})
}

// RefreshProfile recomputes the doctor's percentage without ever lowering it.
func (d *Doctor) RefreshProfile() {
	if p := DoctorProfilePercent(d); p > d.ProfilePercent {
		d.ProfilePercent = p
	}
	d.ProfileComplete = d.ProfilePercent >= FullProfile
}

func PatientProfilePercent(p *Patient) int {
	return sumProfile(PatientBasePercent, []profileItem{
		{17, filled(p.City)},
		{17, filled(p.State)},
		{17, filled(p.PostalCode)},
		{16, filled(p.Line)},
	})
}

func (p *Patient) ProfileComplete() bool {
	return p.ProfilePercent >= FullProfile
}
