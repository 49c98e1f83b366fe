package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so errors match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct tag validation and returns the first failure as a *apperrors.ValidationError.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fe.Field(), describeFieldError(fe))
	}
	return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// requireAdmin fails with ErrForbidden unless the acting user is an admin.
func requireAdmin(ctx context.Context) (models.Actor, error) {
	actor := models.ActorOrSystem(ctx)
	if !actor.IsAdmin() {
		return actor, fmt.Errorf("%w: admin role required", apperrors.ErrForbidden)
	}
	return actor, nil
}

// actingWriter resolves the writer profile of a non-admin actor.
// An actor without a profile is forbidden rather than not found.
func actingWriter(ctx context.Context, writers repositories.WriterRepository, actor models.Actor) (*models.WriterProfile, error) {
	writer, err := writers.GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no writer profile for %s", apperrors.ErrForbidden, actor.ID)
		}
		return nil, err
	}
	return writer, nil
}

// requireAssignmentAccess allows admins and the assignment's owning writer.
func requireAssignmentAccess(ctx context.Context, writers repositories.WriterRepository, ownerID uuid.UUID) error {
	actor := models.ActorOrSystem(ctx)
	if actor.IsAdmin() {
		return nil
	}
	writer, err := actingWriter(ctx, writers, actor)
	if err != nil {
		return err
	}
	if writer.ID != ownerID {
		return apperrors.ErrNotAssignmentOwner
	}
	return nil
}
