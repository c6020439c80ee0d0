package waitlist

import (
	"bridge/waitlist-api/internal"
	"bridge/waitlist-api/internal/service"
	"bridge/waitlist-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Older forms send name and interestType, they are accepted as aliases
type submitBody struct {
	FirstName    string `json:"firstName"`
	Name         string `json:"name"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	Source       string `json:"source"`
	InterestType string `json:"interestType"`
}

func (b *submitBody) input() validators.WaitlistInput {
	in := validators.WaitlistInput{
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Email:     b.Email,
		Phone:     b.Phone,
		Location:  b.Location,
		Source:    b.Source,
	}

	if in.FirstName == "" {
		in.FirstName = b.Name
	}
	if in.Source == "" {
		in.Source = b.InterestType
	}

	return in
}

func WaitlistSubmit(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data submitBody
	if err := c.ShouldBindJSON(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("request_id", requestID))

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"ok":      false,
				"message": "PAYLOAD_TOO_LARGE",
			})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"ok":          false,
			"fieldErrors": gin.H{"body": "Invalid request body"},
		})
		return
	}

	res, err := d.Intake.Submit(c.Request.Context(), &service.SignupRequest{
		Input:     data.input(),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: requestID,
	})
	if err != nil {
		var vErr *service.ValidationError

		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"ok":          false,
				"fieldErrors": vErr.Fields,
			})
		case errors.Is(err, service.ErrStoreInsertFailed):
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":      false,
				"message": "DB_INSERT_FAILED",
			})
		default:
			zap.L().Error("Unexpected waitlist error", zap.Error(err), zap.String("request_id", requestID))

			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":      false,
				"message": "INTERNAL_SERVER_ERROR",
			})
		}
		return
	}

	var id any
	if res.ID != "" {
		id = res.ID
	}

	if res.Duplicate {
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"duplicate": true,
			"id":        id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"id": id,
	})
}
