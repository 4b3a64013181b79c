package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// HandleServiceError writes the response for an error returned by a
// service. Callers see the domain message; wrapped causes only reach the logs.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error", zap.Error(err))
		writeOrLog(utils.WriteInternalServerError(w, "An unexpected error occurred"), logger)
		return
	}

	details := domainErr.Details
	if len(details) == 0 {
		details = nil
	}
	message := domainErr.Message

	var writeErr error
	switch domainErr.Type {
	case services.ErrorTypeNotFound:
		writeErr = utils.WriteNotFound(w, message)
	case services.ErrorTypeValidation:
		writeErr = utils.WriteBadRequest(w, message, details)
	case services.ErrorTypeUnauthorized:
		writeErr = utils.WriteUnauthorized(w, message)
	case services.ErrorTypeForbidden:
		writeErr = utils.WriteForbidden(w, message)
	case services.ErrorTypeConflict:
		writeErr = utils.WriteConflict(w, message, details)
	case services.ErrorTypeExternal:
		logger.Warn("external dependency failed", zap.Error(err))
		writeErr = utils.WriteError(w, http.StatusBadGateway, message, details)
	default:
		logger.Error("internal server error",
			zap.String("error_type", string(domainErr.Type)),
			zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")
	}
	writeOrLog(writeErr, logger)
}

// HandleValidationError writes a 400 for a request body that failed to
// decode or validate, listing the offending fields when there are any
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if !utils.IsValidationError(err) {
		writeOrLog(utils.WriteBadRequest(w, err.Error(), nil), logger)
		return
	}

	details := make(map[string]interface{})
	for field, msg := range utils.GetValidationFields(err) {
		details[field] = msg
	}
	writeOrLog(utils.WriteBadRequest(w, "Validation failed", details), logger)
}

func writeOrLog(err error, logger *zap.Logger) {
	if err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}
