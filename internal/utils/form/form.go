// Package form validates decoded HTML form submissions and JSON bodies
// with go-playground/validator. Messages name the `form` tag, falling back
// to the `json` tag.
package form

import (
	"errors"
	"reflect"
	"strings"

	"github.com/VanDeGall/EduTestor/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// validator.Validate caches struct metadata and is safe for concurrent
// use, so one instance serves every request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"form", "json"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// Validate checks the validate:"..." tags of v and returns one message per
// failing field. A nil slice means the form is valid.
func Validate(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return response.ValidationMessages(verrs)
	}
	return []string{err.Error()}
}

// Values flattens a struct's form-tagged string fields into a map for
// echoing back into a re-rendered page. Fields tagged `echo:"-"` (such as
// passwords) are left out.
func Values(v any) map[string]string {
	out := make(map[string]string)
	rv := reflect.Indirect(reflect.ValueOf(v))
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := f.Tag.Get("form")
		if name == "" || f.Tag.Get("echo") == "-" || rv.Field(i).Kind() != reflect.String {
			continue
		}
		out[name] = rv.Field(i).String()
	}
	return out
}
