package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of account kinds.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ParseRole accepts "patient" or "doctor" in any case. Older clients send
// "user" for patients, which is accepted as an alias.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient", "user":
		return RolePatient, nil
	case "doctor":
		return RoleDoctor, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// User represents a system user
type User struct {
	Base
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
	FirstName    string `json:"first_name" db:"first_name"`
	LastName     string `json:"last_name" db:"last_name"`
	Phone        string `json:"phone,omitempty" db:"phone"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Actor identifies who is driving a ledger transition. ID is the user ID for
// patients and the doctor ID for doctors.
type Actor struct {
	Role Role
	ID   uuid.UUID
}

func PatientActor(id uuid.UUID) Actor { return Actor{Role: RolePatient, ID: id} }
func DoctorActor(id uuid.UUID) Actor  { return Actor{Role: RoleDoctor, ID: id} }
