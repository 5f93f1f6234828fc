// Package httputil holds the JSON request and response helpers shared by
// admin API handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
)

var log = logger.Named("httputil")

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxBodyBytes bounds request bodies; bulk suppression imports are the largest.
const maxBodyBytes = 4 << 20

// ErrorResponse is the error envelope for every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("json encode failed", "error", err)
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "unauthorized")
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// InternalError logs err and writes a generic 500.
func InternalError(w http.ResponseWriter, err error) {
	log.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads the JSON body into dst and validates its `validate` struct
// tags. On failure it writes a 400 and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			JSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation failed",
				Code:    "invalid_request",
				Details: fieldErrors(verrs),
			})
			return false
		}
		BadRequest(w, err.Error())
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		out[strings.ToLower(fe.Field())] = msg
	}
	return out
}
