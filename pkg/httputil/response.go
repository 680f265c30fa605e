package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Errors  []validator.FieldError `json:"errors,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: "success", Data: data})
}

func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Status: "success", Data: data})
}

func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{Status: "success", Message: message})
}

// RespondWithError maps err to its HTTP status. Errors that are not
// AppErrors are reported as internal without their detail.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), Response{
		Status:  "error",
		Message: apperrors.Message(err),
	})
}

// RespondWithErrorData is RespondWithError with a payload, for failures the
// client can act on.
func RespondWithErrorData(c *gin.Context, err error, data interface{}) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), Response{
		Status:  "error",
		Message: apperrors.Message(err),
		Data:    data,
	})
}

// RespondWithBindError reports a request that failed to bind or validate.
func RespondWithBindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status:  "error",
		Message: "invalid request",
		Errors:  validator.Translate(err),
	})
}

func RespondWithPagination(c *gin.Context, items interface{}, page, pageSize int) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data: PaginatedResponse{
			Items:      items,
			Pagination: Pagination{Page: page, PageSize: pageSize},
		},
	})
}
