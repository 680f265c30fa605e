package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	svc *notification.Service
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	n := r.Group("/notifications")
	{
		n.GET("", h.List)
		n.GET("/unread-count", h.UnreadCount)
		n.POST("/:id/read", h.MarkRead)
	}
}

// List accepts an optional ?type= filter.
func (h *Handler) List(c *gin.Context) {
	typ := model.NotificationType(c.Query("type"))
	list, err := h.svc.List(c.Request.Context(), middleware.UserID(c), typ)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if list == nil {
		list = []*model.Notification{}
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"unread": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "notification marked read")
}
