package model

// Dashboard is the role-specific landing data. The set of variants is closed:
// only PatientDashboard and DoctorDashboard implement it.
type Dashboard interface {
	Role() Role
	dashboard()
}

type PatientDashboard struct {
	Patient              *Patient             `json:"patient"`
	ProfilePercent       int                  `json:"profile_percent"`
	WalletBalance        float64              `json:"wallet_balance"`
	UpcomingAppointments []*AppointmentDetail `json:"upcoming_appointments"`
	UnreadNotifications  int                  `json:"unread_notifications"`
}

func (PatientDashboard) Role() Role { return RolePatient }
func (PatientDashboard) dashboard() {}

type DoctorDashboard struct {
	Doctor              *Doctor              `json:"doctor"`
	PendingRequests     []*AppointmentDetail `json:"pending_requests"`
	TodayAppointments   []*AppointmentDetail `json:"today_appointments"`
	WalletBalance       float64              `json:"wallet_balance"`
	UnreadNotifications int                  `json:"unread_notifications"`
}

func (DoctorDashboard) Role() Role { return RoleDoctor }
func (DoctorDashboard) dashboard() {}
