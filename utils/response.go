package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StandardResponse represents the standard API response structure
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a standardized success response
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// Created sends a standardized created response (201)
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// SuccessWithPagination sends a list along with limit/skip paging details
func SuccessWithPagination(c *gin.Context, message string, data interface{}, p *Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    message,
		"data":       data,
		"pagination": p,
	})
}

// Error sends a standardized error response
func Error(c *gin.Context, statusCode int, kind, message string, err interface{}) {
	response := StandardResponse{
		Status:  "error",
		Message: message,
	}
	data := gin.H{"kind": kind}
	if err != nil {
		data["error"] = err
	}
	response.Data = data
	c.JSON(statusCode, response)
}

// RespondError maps a service error onto the matching status code and kind
func RespondError(c *gin.Context, message string, err error) {
	status, kind := ClassifyError(err)
	if status >= http.StatusInternalServerError {
		LogError("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	} else {
		LogDebug("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	}
	Error(c, status, kind, message, err.Error())
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusBadRequest, KindValidation, message, err)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, KindUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, KindForbidden, message, nil)
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusInternalServerError, KindInternal, message, err)
}
