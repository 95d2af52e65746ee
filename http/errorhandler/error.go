package errorhandler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/craftwatch/core/http/api"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders handler errors as api.Error JSON bodies.
func HTTPErrorHandler(err error, c echo.Context) {
	var code int
	var details []string
	message := ""

	if he, ok := err.(api.Error); ok {
		code = he.Code
		message = he.Message
		details = he.Details
	} else if he, ok := err.(*echo.HTTPError); ok {
		if he.Internal != nil {
			if herr, ok := he.Internal.(*echo.HTTPError); ok {
				he = herr
			}
		}

		code = he.Code
		message = http.StatusText(he.Code)
		details = strings.Split(fmt.Sprintf("%v", he.Message), "\n")
	} else {
		code = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)
		details = strings.Split(err.Error(), "\n")
	}

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
	} else {
		c.JSON(code, api.Error{
			Code:    code,
			Message: message,
			Details: details,
		})
	}
}
