package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// RespondWithError writes a failure response in the API envelope
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// RespondWithFieldErrors writes a 422 validation-failure response with a
// per-field error map
func RespondWithFieldErrors(w http.ResponseWriter, err error) {
	RespondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"success": false,
		"message": "Validation failed",
		"errors":  FieldErrors(err),
	})
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// FieldErrors flattens validator errors into a field -> message map keyed by
// the request's JSON field names
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["request"] = "invalid request body"
		return fields
	}

	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", fe.Field())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("The %s field may not be greater than %s.", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("The %s field must be %s characters.", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("The %s field must be a valid URL.", fe.Field())
	default:
		return fmt.Sprintf("The %s field is invalid.", fe.Field())
	}
}
