package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

// Field limits for handler requests.
const (
	MaxTermIDLength      = 200
	MaxDescriptionLength = 2000
)

// requestValidate is shared by all handler request types.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	if err := requestValidate.RegisterValidation("relationtype", validateRelationType); err != nil {
		panic(fmt.Sprintf("registering relationtype validation: %v", err))
	}
}

// validateRelationType accepts any spelling ParseRelationType accepts.
func validateRelationType(fl validator.FieldLevel) bool {
	_, err := entities.ParseRelationType(fl.Field().String())
	return err == nil
}

// validateRequest validates a request struct and converts failures into an
// ErrInvalidArgument naming each offending field.
func validateRequest(req any) error {
	err := requestValidate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating request: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeFieldError(fe))
	}
	return fmt.Errorf("invalid request: %s: %w", strings.Join(problems, "; "), apperrors.ErrInvalidArgument)
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "relationtype":
		return fmt.Sprintf("%s %q is not a relation type (valid: %s)",
			field, fe.Value(), strings.Join(entities.RelationTypeNames(), ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
