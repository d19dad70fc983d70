package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// notblank rejects strings that are empty once trimmed, which plain
// required lets through.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", validators.NotBlank)
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// BindJSON decodes and validates the request body. On failure it writes a
// 400 envelope whose message concatenates every per-field problem, so the
// client can show one notice, and returns false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		fields := parseBindError(err, out)

		message := joinFieldMessages(fields)
		if message == "" {
			message = "Invalid request body"
		}

		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": message,
			"fields":  fields,
		})

		return false
	}

	return true
}

func parseBindError(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	// validator errors (struct binding tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			field := jsonFieldName(rootType, fieldError.StructField())
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   field,
				Rule:    rule,
				Param:   param,
				Message: field + " " + validationMessage(rule, param),
			})
		}
		return fields
	}

	// bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return []FieldError{{Rule: "json", Message: "body is not valid JSON"}}
	}

	// type mismatch

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := jsonFieldName(rootType, unmatchedTypeError.Field)
		if field == "" {
			field = strings.TrimSpace(unmatchedTypeError.Field)
		}

		return []FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("%s must be of type %s", field, unmatchedTypeError.Type.String()),
		}}
	}

	// custom UnmarshalJSON failures (e.g. dates) carry their own message
	return []FieldError{{Rule: "format", Message: err.Error()}}
}

func joinFieldMessages(fields []FieldError) string {
	msgs := make([]string, 0, len(fields))

	for _, f := range fields {
		if f.Message != "" {
			msgs = append(msgs, f.Message)
		}
	}

	return strings.Join(msgs, ", ")
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// The request structs are flat, so mapping a Go field to its JSON name is a
// single tag lookup.
func jsonFieldName(rootType reflect.Type, goField string) string {
	if rootType == nil || goField == "" {
		return goField
	}

	sf, ok := rootType.FieldByName(goField)
	if !ok {
		return goField
	}

	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
