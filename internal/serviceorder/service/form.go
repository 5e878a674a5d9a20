package service

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/journalpay/internal/pricing"
	"github.com/smallbiznis/journalpay/internal/serviceorder/domain"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodePrintedForm reads the loosely typed form_data into the typed form
// and validates it.
func decodePrintedForm(v *validator.Validate, data map[string]any) (*pricing.PrintedPublicationForm, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, domain.ErrInvalidForm
	}
	var form pricing.PrintedPublicationForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, &domain.FormError{Fields: map[string]string{"_": "malformed form data"}}
	}
	if err := v.Struct(form); err != nil {
		fields := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				fields[fe.Field()] = messageForTag(fe.Tag(), fe.Param())
			}
		} else {
			fields["_"] = "invalid form data"
		}
		return nil, &domain.FormError{Fields: fields}
	}
	return &form, nil
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "max", "lte":
		return "must be at most " + param
	case "gte":
		return "must be at least " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return "is invalid"
	}
}
