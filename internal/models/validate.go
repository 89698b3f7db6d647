package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation error")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Normalize trims surrounding whitespace from the text fields.
func (d *BookDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.Description = strings.TrimSpace(d.Description)
	d.Genre = strings.TrimSpace(d.Genre)
}

// Validate normalizes the draft and checks it. Failures wrap ErrValidation.
func (d *BookDraft) Validate() error {
	d.Normalize()

	if err := validate.Struct(d); err != nil {
		return validationError(err)
	}

	if d.CoverImage != nil {
		if err := d.CoverImage.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	return nil
}

func (p *BookPatch) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}

	trim(p.Title)
	trim(p.Author)
	trim(p.Description)
	trim(p.Genre)
}

func (p *BookPatch) Validate() error {
	p.Normalize()

	if err := validate.Struct(p); err != nil {
		return validationError(err)
	}

	if p.CoverImage != nil {
		if err := p.CoverImage.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}

	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 5", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
