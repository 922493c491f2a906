package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError menerjemahkan AppError ke status HTTP. Alasan policy tidak
// pernah dikirim ke client.
func RespondError(c *gin.Context, err error) {
	kind := KindOf(err)
	code := StatusFor(kind)
	message := err.Error()
	if kind == KindInternal {
		ErrorLogger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		message = "internal error"
	}
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: message,
		Kind:    string(kind),
	})
}

// RespondPublicError is used on unauthenticated routes: authorization and
// not-found failures render identically so callers cannot tell which ids exist.
func RespondPublicError(c *gin.Context, err error) {
	switch KindOf(err) {
	case KindAuthorization, KindNotFound:
		c.JSON(http.StatusNotFound, JSONResponse{
			Status:  false,
			Message: "session not accessible",
			Kind:    string(KindNotFound),
		})
	default:
		RespondError(c, err)
	}
}

// RespondBadRequest is for bind failures, before any operation runs.
func RespondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Kind:    string(KindValidation),
	})
}

func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindIssuanceExhausted:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
