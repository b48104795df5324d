package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/validation"
)

// Errors writes the response for the last error a handler recorded with
// c.Error. Handlers that already wrote a body are left alone.
func Errors(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, body := render(err)

		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("request_id", RequestIDFrom(c)).
				Msg("request failed")
		}
		c.AbortWithStatusJSON(status, body)
	}
}

func render(err error) (int, gin.H) {
	var (
		fieldErrs validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"details": validation.Describe(fieldErrs),
		}
	case errors.As(err, &typeErr):
		return http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"details": []validation.FieldError{{
				Field:   typeErr.Field,
				Message: "must be a " + typeErr.Type.String(),
			}},
		}
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, gin.H{"error": "invalid_request_body"}
	}

	kind := apperr.KindOf(err)
	body := gin.H{"error": apperr.Message(err)}
	if kind == apperr.KindValidation {
		body["details"] = []validation.FieldError{}
	}
	return kind.Status(), body
}
