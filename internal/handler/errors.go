package handler

import (
	"errors"
	"net/http"

	"nexos/internal/bizerr"
	"nexos/pkg/logger"
	"nexos/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto the HTTP status and body. Anything
// outside the taxonomy is logged and reported as a generic 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bizerr.ErrInvalidRequest):
		response.ParamError(c, err.Error())
	case errors.Is(err, bizerr.ErrBidTooLow):
		response.Error(c, http.StatusBadRequest, response.CodeBidTooLow, err.Error())
	case errors.Is(err, bizerr.ErrAuctionNotOpen):
		response.Error(c, http.StatusBadRequest, response.CodeAuctionNotOpen, err.Error())
	case errors.Is(err, bizerr.ErrInsufficientFunds):
		response.Error(c, http.StatusBadRequest, response.CodeInsufficientFunds, err.Error())
	case errors.Is(err, bizerr.ErrAlreadyFinalized):
		response.Error(c, http.StatusBadRequest, response.CodeAlreadyFinalized, err.Error())
	case errors.Is(err, bizerr.ErrUnauthorized):
		response.Forbidden(c, err.Error())
	case errors.Is(err, bizerr.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, bizerr.ErrConflict):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, bizerr.ErrBusy):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, bizerr.ErrBusy.Error())
	default:
		logger.Error("request failed", logger.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		})
		response.ServerError(c, "internal server error")
	}
}
