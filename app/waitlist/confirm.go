package waitlist

import (
	"bridge/waitlist-api/internal"
	"bridge/waitlist-api/internal/service"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WaitlistConfirm consumes the token from the confirmation link and sends
// the browser to the "you're confirmed" page
func WaitlistConfirm(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	_, err := d.Confirmer.Confirm(c.Request.Context(), c.Query("token"), requestID)
	if err != nil {
		status, code := confirmError(err)
		c.JSON(status, gin.H{
			"ok":      false,
			"message": code,
		})
		return
	}

	base := strings.TrimRight(d.Config.App.BaseURL, "/")
	c.Redirect(http.StatusFound, base+d.Config.App.ConfirmRedirectPath)
}

func confirmError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrTokenMissing):
		return http.StatusBadRequest, "TOKEN_MISSING"
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusBadRequest, "TOKEN_INVALID"
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		return http.StatusBadRequest, "TOKEN_ALREADY_USED"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusBadRequest, "TOKEN_EXPIRED"
	case errors.Is(err, service.ErrConfirmationFailed):
		return http.StatusInternalServerError, "CONFIRMATION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}
