package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"todocalendar/internal/auth"
	"todocalendar/internal/dto"
	"todocalendar/internal/service"
	"todocalendar/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonName)
	}
}

// jsonName makes validator report fields by their JSON key.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	}
	return fe.Error()
}

// bindErr turns a binding failure into the error respondError understands.
func bindErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := &service.ValidationError{}
		for _, fe := range verrs {
			out.Add(fe.Field(), fieldMessage(fe))
		}
		return out
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		out := &service.ValidationError{}
		out.Add(typeErr.Field, fmt.Sprintf("Incorrect type. Expected %s.", typeErr.Type))
		return out
	}
	return badRequest{msg: err.Error()}
}

type badRequest struct{ msg string }

func (b badRequest) Error() string { return b.msg }

// bindJSON decodes the body into req and validates it. An empty body counts
// as an empty object. On failure the response is already written.
func bindJSON(c *gin.Context, logger *log.Logger, req any) bool {
	err := c.ShouldBindJSON(req)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(req)
	}
	if err != nil {
		respondError(c, logger, bindErr(err))
		return false
	}
	return true
}

// respondError writes the status and body for err. Unknown errors are logged
// and reported as 500 without details.
func respondError(c *gin.Context, logger *log.Logger, err error) {
	var verr *service.ValidationError
	var bad badRequest
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ValidationErrorResponse{Errors: verr.Fields})
	case errors.As(err, &bad):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: bad.msg})
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusBadRequest, dto.ValidationErrorResponse{Errors: map[string][]string{
			"file": {"The submitted file is too large."},
		}})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found."})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "Object already exists."})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid email or password."})
	case errors.Is(err, service.ErrInactiveAccount):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User account is disabled."})
	case errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Token is invalid or expired."})
	default:
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// queryBool reads an optional boolean filter.
func queryBool(c *gin.Context, verr *service.ValidationError, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		verr.Add(name, "Select a valid choice.")
		return nil
	}
	return &v
}

// queryInt reads an optional id filter.
func queryInt(c *gin.Context, verr *service.ValidationError, name string) *int64 {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		verr.Add(name, "Enter a number.")
		return nil
	}
	return &v
}
