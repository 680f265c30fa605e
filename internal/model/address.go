package model

// Address is a possibly partial location. Any subset of fields may be empty.
type Address struct {
	Latitude   *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64 `json:"longitude,omitempty" db:"longitude"`
	City       string   `json:"city,omitempty" db:"city"`
	State      string   `json:"state,omitempty" db:"state"`
	PostalCode string   `json:"pincode,omitempty" db:"pincode"`
	Line       string   `json:"address,omitempty" db:"address_line"`
}

func (a Address) IsEmpty() bool {
	return a.Latitude == nil && a.Longitude == nil &&
		a.City == "" && a.State == "" && a.PostalCode == "" && a.Line == ""
}

// Coord is a helper for building addresses in code and tests.
func Coord(v float64) *float64 { return &v }
