// Package handler holds what the per-area HTTP handlers share.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// ParamID parses the named path parameter as a UUID. On failure it has
// already responded and the handler should return.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewInvalidInput("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON binds and validates the body into req, responding on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httputil.RespondWithBindError(c, err)
		return false
	}
	return true
}

// Page reads ?page= and ?page_size=. Bad values fall back to the defaults.
func Page(c *gin.Context) model.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	p := model.Pagination{Page: page, PageSize: size}
	if p.Page < 1 {
		p.Page = 1
	}
	p.PageSize = p.Limit()
	return p
}

// Status reads an optional ?status= filter.
func Status(c *gin.Context) (model.AppointmentStatus, bool) {
	s := model.AppointmentStatus(c.Query("status"))
	switch s {
	case "", model.AppointmentStatusPending, model.AppointmentStatusAccepted,
		model.AppointmentStatusRejected, model.AppointmentStatusCancelled:
		return s, true
	default:
		httputil.RespondWithError(c, apperrors.NewInvalidInput("invalid status "+string(s), nil))
		return "", false
	}
}
