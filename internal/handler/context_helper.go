package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uphsl-enrollment-api/internal/middleware"
	"github.com/noah-isme/uphsl-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

// mutationFromRequest collects the acting user and the If-Match version.
func mutationFromRequest(c *gin.Context) (service.Mutation, error) {
	var m service.Mutation
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		m.ActorID = claims.UserID
	}
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return m, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		return m, appErrors.Clone(appErrors.ErrPreconditionFailed, "If-Match must carry a record version")
	}
	m.ExpectedVersion = version
	return m, nil
}

func setVersionTag(c *gin.Context, version int) {
	c.Header("ETag", strconv.Quote(strconv.Itoa(version)))
}

func paymentIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, appErrors.Clone(appErrors.ErrPaymentNotFound, "payment index must be a non-negative integer")
	}
	return index, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}
