// Package mock provides helpers for exercising API handlers in tests.
package mock

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/craftwatch/core/encoding/json"
	"github.com/craftwatch/core/http/errorhandler"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func DummyEcho() *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = errorhandler.HTTPErrorHandler
	router.Logger.SetOutput(io.Discard)

	return router
}

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Raw     []byte
	Data    interface{}
}

func Request(t require.TestingT, httpstatus int, router *echo.Echo, method, path string, data io.Reader) *Response {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, data)
	if data != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)

	response := CheckResponse(t, w.Result())

	require.Equal(t, httpstatus, w.Code, string(response.Raw))

	return response
}

func CheckResponse(t require.TestingT, res *http.Response) *Response {
	response := &Response{
		Code: res.StatusCode,
	}

	body, err := io.ReadAll(res.Body)
	require.Equal(t, nil, err)

	res.Body.Close()

	response.Raw = body

	if strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		err := json.Unmarshal(body, &response.Data)
		require.Equal(t, nil, err)
	} else {
		response.Data = body
	}

	return response
}

// Validate checks that data conforms to the JSON schema derived from datatype.
func Validate(t require.TestingT, datatype, data interface{}) bool {
	schema, err := jsonschema.Reflect(datatype).MarshalJSON()
	require.NoError(t, err)

	schemaLoader := gojsonschema.NewStringLoader(string(schema))
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	require.Equal(t, nil, err)
	require.Equal(t, true, result.Valid(), result.Errors())

	return true
}
