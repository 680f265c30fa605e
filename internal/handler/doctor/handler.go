package doctor

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/ledger"
	"github.com/jwalitptl/clinic-api/internal/service/medical"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves the doctor side of appointments and consultations.
type Handler struct {
	doctors       *doctor.Service
	ledger        *ledger.Service
	medical       *medical.Service
	notifications *notification.Service
}

func NewHandler(doctors *doctor.Service, ledger *ledger.Service, medical *medical.Service, notifications *notification.Service) *Handler {
	return &Handler{
		doctors:       doctors,
		ledger:        ledger,
		medical:       medical,
		notifications: notifications,
	}
}

// RegisterRoutes expects r to be authenticated and limited to doctors.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	d := r.Group("/doctor")
	{
		d.GET("/profile", h.GetProfile)
		d.PUT("/profile", h.UpdateProfile)

		d.GET("/appointments", h.ListAppointments)
		d.POST("/appointments/cancel-by-date", h.CancelByDate)
		d.POST("/appointments/:id/accept", h.Accept)
		d.POST("/appointments/:id/reject", h.Reject)
		d.POST("/appointments/:id/cancel", h.Cancel)
		d.POST("/appointments/:id/prescriptions", h.SavePrescriptions)
		d.PUT("/appointments/:id/notes", h.SaveNotes)
		d.GET("/appointments/:id/notes", h.GetNotes)

		d.GET("/patients", h.ListPatients)
		d.POST("/patients/:id/vitals", h.RecordVitals)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	doc, err := h.doctors.Get(c.Request.Context(), middleware.DoctorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateDoctorProfileRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	doc, err := h.doctors.UpdateProfile(c.Request.Context(), middleware.DoctorID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) ListPatients(c *gin.Context) {
	roster, err := h.doctors.Patients(c.Request.Context(), middleware.DoctorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, roster)
}

// ListAppointments with status=pending is the request inbox and marks the
// request notifications read.
func (h *Handler) ListAppointments(c *gin.Context) {
	status, ok := handler.Status(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if status == model.AppointmentStatusPending {
		doc, err := h.doctors.Get(ctx, middleware.DoctorID(c))
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		list, err := h.notifications.DoctorRequests(ctx, doc)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		if list == nil {
			list = []*model.AppointmentDetail{}
		}
		httputil.RespondWithSuccess(c, list)
		return
	}

	list, err := h.doctors.Appointments(ctx, middleware.DoctorID(c), status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) Accept(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	appt, err := h.ledger.AcceptBooking(c.Request.Context(), middleware.DoctorID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

type rejectResponse struct {
	Appointment *model.Appointment `json:"appointment"`
	Refunded    float64            `json:"refunded"`
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	// The body is optional.
	var req model.RejectBookingRequest
	if c.Request.ContentLength > 0 && !handler.BindJSON(c, &req) {
		return
	}
	appt, refunded, err := h.ledger.RejectBooking(c.Request.Context(), middleware.DoctorID(c), id, req.DeleteNotification)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rejectResponse{Appointment: appt, Refunded: refunded})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	result, err := h.ledger.CancelBooking(c.Request.Context(), model.DoctorActor(middleware.DoctorID(c)), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

type cancelByDateResponse struct {
	Cancelled int                    `json:"cancelled"`
	Results   []*ledger.CancelResult `json:"results"`
}

func (h *Handler) CancelByDate(c *gin.Context) {
	var req model.CancelByDateRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	results, err := h.ledger.CancelByDate(c.Request.Context(), middleware.DoctorID(c), req.Date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, cancelByDateResponse{Cancelled: len(results), Results: results})
}

func (h *Handler) SavePrescriptions(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.SavePrescriptionRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	list, err := h.medical.SavePrescriptions(c.Request.Context(), middleware.DoctorID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, list)
}

func (h *Handler) SaveNotes(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.SaveNotesRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	note, err := h.medical.SaveNotes(c.Request.Context(), middleware.DoctorID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, note)
}

func (h *Handler) GetNotes(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	note, err := h.medical.Notes(c.Request.Context(), middleware.DoctorID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, note)
}

func (h *Handler) RecordVitals(c *gin.Context) {
	patientID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.SaveVitalsRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	v, err := h.medical.RecordVitals(c.Request.Context(), middleware.DoctorID(c), patientID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, v)
}
