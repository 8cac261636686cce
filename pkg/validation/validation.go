package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator with interaction-specific rules
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the interaction kind rule registered
func New() *Validator {
	v := validator.New()
	v.RegisterValidation("interaction_kind", validateInteractionKind)
	return &Validator{validate: v}
}

// Validate validates a struct and returns a flattened, human-readable error
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %s failed on %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// validateInteractionKind accepts the presence-flag kinds a toggle can carry
func validateInteractionKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "like", "save":
		return true
	}
	return false
}
