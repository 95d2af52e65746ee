package util

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/craftwatch/core/encoding/json"

	"github.com/labstack/echo/v4"
)

// ShouldBindJSON binds the body data of the request to the given object. An
// error is returned if the body data is not valid JSON.
func ShouldBindJSON(c echo.Context, obj interface{}) error {
	req := c.Request()

	if req.ContentLength == 0 {
		return fmt.Errorf("request doesn't contain any content")
	}

	ctype := req.Header.Get(echo.HeaderContentType)

	if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		return fmt.Errorf("request doesn't contain JSON content")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, obj); err != nil {
		return json.FormatError(body, err)
	}

	return nil
}

func PathParam(c echo.Context, name string) string {
	param := c.Param(name)

	param, err := url.PathUnescape(param)
	if err != nil {
		return ""
	}

	return param
}

func DefaultQuery(c echo.Context, name, defValue string) string {
	param := c.QueryParam(name)

	if len(param) == 0 {
		return defValue
	}

	param, err := url.QueryUnescape(param)
	if err != nil {
		return defValue
	}

	return param
}

// DefaultUintQuery returns the named query parameter as unsigned integer,
// or the default if it is missing or unparsable.
func DefaultUintQuery(c echo.Context, name string, defValue uint64) uint64 {
	param := DefaultQuery(c, name, "")

	if len(param) == 0 {
		return defValue
	}

	value, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return defValue
	}

	return value
}
