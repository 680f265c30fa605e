package account

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves the routes both roles share: the wallet and the dashboard.
type Handler struct {
	accounts *account.Service
	patients *patient.Service
	doctors  *doctor.Service
}

func NewHandler(accounts *account.Service, patients *patient.Service, doctors *doctor.Service) *Handler {
	return &Handler{accounts: accounts, patients: patients, doctors: doctors}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	wallet := r.Group("/wallet")
	{
		wallet.GET("", h.GetWallet)
		wallet.POST("/funds", h.AddFunds)
	}
	r.GET("/dashboard", h.Dashboard)
}

func (h *Handler) GetWallet(c *gin.Context) {
	page := handler.Page(c)
	summary, err := h.accounts.Summary(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) AddFunds(c *gin.Context) {
	var req model.AddFundsRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	wallet, err := h.accounts.AddFunds(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, wallet)
}

func (h *Handler) Dashboard(c *gin.Context) {
	var (
		dash model.Dashboard
		err  error
	)
	ctx := c.Request.Context()

	switch middleware.Claims(c).Role {
	case model.RolePatient:
		dash, err = h.patients.Dashboard(ctx, middleware.UserID(c))
	case model.RoleDoctor:
		dash, err = h.doctors.Dashboard(ctx, middleware.DoctorID(c))
	default:
		err = apperrors.Forbidden("permission denied")
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dash)
}
