package event

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrMissingPayload is returned by Validate for a nil payload.
var ErrMissingPayload = errors.New("missing payload")

// Validate checks a payload's required fields. A payload that fails is
// skipped by the reconcilers rather than failing the batch.
func Validate(payload any) error {
	if payload == nil {
		return ErrMissingPayload
	}
	if v := reflect.ValueOf(payload); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrMissingPayload
	}
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var msgs []string
	for _, fe := range verrs {
		field := fe.Namespace()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(msgs, ", "))
}
