package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/api/middleware"
	"github.com/tmvsalud/medtour/internal/domain/entities"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

const maxBodyBytes = 1 << 20

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{
		Error: message,
		Type:  string(errorTypeForStatus(statusCode)),
	})
}

// respondWithAppError maps the error taxonomy onto HTTP statuses
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("internal server error", err)
	}

	status := statusFor(appErr.Type)
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("type", string(appErr.Type)).Msg("request failed")
		if appErr.Type == apperrors.ErrorTypeInternal {
			message = "internal server error"
		}
	}

	respondWithJSON(w, status, errorResponse{
		Error: message,
		Type:  string(appErr.Type),
		Field: appErr.Field,
	})
}

func statusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeInvalidInput, apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypePreconditionFailed:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeInvalidState, apperrors.ErrorTypeConflict, apperrors.ErrorTypeAmountMismatch:
		return http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusForbidden
	case apperrors.ErrorTypeStorageUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeForStatus(status int) apperrors.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrorTypeInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ErrorTypeUnauthorized
	case http.StatusNotFound:
		return apperrors.ErrorTypeNotFound
	default:
		return apperrors.ErrorTypeInternal
	}
}

// decodeJSON reads a single JSON object and rejects fields the target does not declare
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.NewInvalidInputError("", "request body is required")
		case errors.As(err, &syntaxErr):
			return apperrors.NewInvalidInputError("", fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
		case errors.As(err, &typeErr):
			// embedded structs surface as "QuotePatch.stay_days"; keep the JSON name
			field := typeErr.Field[strings.LastIndex(typeErr.Field, ".")+1:]
			return apperrors.NewInvalidInputError(field, fmt.Sprintf("%s must be a %s", field, typeErr.Type))
		case errors.As(err, &maxErr):
			return apperrors.NewInvalidInputError("", "request body is too large")
		}
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			field = strings.Trim(field, `"`)
			return apperrors.NewInvalidInputError(field, fmt.Sprintf("field %s is not accepted", field))
		}
		return apperrors.NewInvalidInputError("", "invalid request payload")
	}
	if dec.More() {
		return apperrors.NewInvalidInputError("", "request body must contain a single JSON object")
	}
	return nil
}

// requireActor returns the authenticated caller, answering 401 when there is none
func requireActor(w http.ResponseWriter, r *http.Request) (entities.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "request requires " + middleware.HeaderUserRole + " and " + middleware.HeaderUserID + " headers",
			Type:  string(apperrors.ErrorTypeUnauthorized),
		})
	}
	return actor, ok
}

// pageParams reads limit and offset query parameters; bad values fall back to zero
func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}
