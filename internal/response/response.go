// Package response renders JSON errors and maps domain errors to HTTP status codes.
package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

type Error struct {
	Error string `json:"error"`
}

// Status maps an error returned by a service to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrNoActiveVersion):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidState), errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNoSystems), errors.Is(err, storage.ErrInvalidLevel):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrInvalidInput), errors.Is(err, schema.ErrInvalidSchema):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Fail logs err and writes it as JSON. Internal errors are not echoed to the client.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	status := Status(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", slog.String("op", op), slog.String("error", err.Error()))
		msg = "Internal error"
	} else {
		log.Info("request rejected", slog.String("op", op), slog.Int("status", status), slog.String("error", err.Error()))
	}

	render.Status(r, status)
	render.JSON(w, r, Error{Error: msg})
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error{Error: msg})
}

// IDParam reads a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
