// Package respond writes the API's JSON envelope: {"success":true,"data":...}
// on success, {"success":false,"message":...} on failure.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// List writes a success envelope with count and pagination fields.
func List(c echo.Context, items interface{}, total, limit, offset int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    items,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func Message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}
