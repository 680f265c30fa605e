package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/ledger"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/pending"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves the patient's booking flow.
type Handler struct {
	ledger   *ledger.Service
	pending  *pending.Service
	patients *patient.Service
}

func NewHandler(ledger *ledger.Service, pending *pending.Service, patients *patient.Service) *Handler {
	return &Handler{ledger: ledger, pending: pending, patients: patients}
}

// RegisterRoutes expects r to be authenticated and limited to patients.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.POST("/pending", h.StashPending)
		bookings.GET("/pending", h.GetPending)
		bookings.DELETE("/pending", h.DeletePending)
	}

	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("/:id/cancel", h.CancelAppointment)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	patientID := middleware.UserID(c)

	if err := h.patients.EnsureComplete(ctx, patientID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewInvalidInput(err.Error(), nil))
		return
	}

	result, err := h.ledger.CreateBooking(ctx, ledger.BookingRequest{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Slots:     req.Slots,
		Method:    method,
		Details:   paymentDetails(method, &req),
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientFunds) {
			h.respondInsufficient(c, patientID, &req, method, err)
			return
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, result)
}

// respondInsufficient parks the booking so the patient can resume it after a
// top-up, and returns it alongside the 402.
func (h *Handler) respondInsufficient(c *gin.Context, patientID uuid.UUID, req *model.CreateBookingRequest, method model.PaymentMethod, cause error) {
	pb, err := h.pending.Stash(c.Request.Context(), patientID, model.StashBookingRequest{
		DoctorID:      req.DoctorID,
		Slots:         req.Slots,
		PaymentMethod: string(method),
	})
	if err != nil {
		httputil.RespondWithError(c, cause)
		return
	}
	httputil.RespondWithErrorData(c, cause, pb)
}

func paymentDetails(method model.PaymentMethod, req *model.CreateBookingRequest) string {
	switch method {
	case model.PaymentMethodCard:
		return req.CardNumber
	case model.PaymentMethodUPI:
		return req.UPIID
	default:
		return ""
	}
}

func (h *Handler) StashPending(c *gin.Context) {
	var req model.StashBookingRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	pb, err := h.pending.Stash(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, pb)
}

func (h *Handler) GetPending(c *gin.Context) {
	pb, err := h.pending.Get(middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pb)
}

func (h *Handler) DeletePending(c *gin.Context) {
	h.pending.Delete(middleware.UserID(c))
	httputil.RespondWithMessage(c, "pending booking discarded")
}

func (h *Handler) ListAppointments(c *gin.Context) {
	status, ok := handler.Status(c)
	if !ok {
		return
	}
	list, err := h.patients.Appointments(c.Request.Context(), middleware.UserID(c), status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	result, err := h.ledger.CancelBooking(c.Request.Context(), model.PatientActor(middleware.UserID(c)), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
