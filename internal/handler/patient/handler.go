package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/medical"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves the patient side: profile, doctor search and medical records.
type Handler struct {
	patients *patient.Service
	doctors  *doctor.Service
	medical  *medical.Service
}

func NewHandler(patients *patient.Service, doctors *doctor.Service, medical *medical.Service) *Handler {
	return &Handler{patients: patients, doctors: doctors, medical: medical}
}

// RegisterRoutes expects r to be authenticated and limited to patients.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)

	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.GET("/:id/slots", h.BookedSlots)
	}

	r.GET("/prescriptions", h.ListPrescriptions)
	r.POST("/prescriptions/:id/consumed", h.UpdateConsumed)
	r.GET("/appointments/:id/bill", h.Bill)
	r.GET("/vitals", h.ListVitals)
}

func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.patients.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdatePatientProfileRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	p, err := h.patients.UpdateProfile(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	ranked, err := h.doctors.Browse(c.Request.Context(), middleware.UserID(c), c.Query("specialty"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, ranked)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	d, err := h.doctors.Profile(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) BookedSlots(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	slots, err := h.doctors.BookedSlots(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	list, err := h.medical.PatientPrescriptions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) UpdateConsumed(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateConsumedRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	p, err := h.medical.UpdateConsumed(c.Request.Context(), middleware.UserID(c), id, req.MedicineConsumed)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Bill(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	bill, err := h.medical.Bill(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) ListVitals(c *gin.Context) {
	list, err := h.medical.Vitals(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}
