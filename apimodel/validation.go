package apimodel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their wire names so they line up with the API's field errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Messages maps a failed rule, keyed "field.tag", to the message reported for it. A key
// of just "field" covers every rule on that field.
type Messages map[string]string

// ValidateStruct checks s against its validate tags. It returns nil or a *FieldErrors
// worded with messages.
func ValidateStruct(s any, messages Messages) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := &FieldErrors{}
	for _, e := range verrs {
		msg, ok := messages[e.Field()+"."+e.Tag()]
		if !ok {
			msg, ok = messages[e.Field()]
		}
		if !ok {
			msg = fmt.Sprintf("%s failed the %q rule.", e.Field(), e.Tag())
		}
		fe.Add(e.Field(), msg)
	}
	return fe
}
