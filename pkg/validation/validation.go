// Package validation wraps go-playground/validator with English messages,
// JSON field names and the custom tags used by classpoint inputs.
package validation

import (
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// Custom validation tags.
const (
	TagNotBlank = "notblank"
	TagDOB      = "dob"
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// dobPattern accepts the two date layouts found in school rosters:
// dd/mm/yyyy (also with dashes or dots) and yyyy-mm-dd.
var dobPattern = regexp.MustCompile(`^(\d{1,2}[/.-]\d{1,2}[/.-]\d{4}|\d{4}-\d{1,2}-\d{1,2})$`)

func setup() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, translator)

	// Report JSON (or YAML) names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = validate.RegisterValidation(TagNotBlank, notBlank)
	_ = validate.RegisterValidation(TagDOB, dateOfBirth)

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{TagNotBlank, TagDOB} {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(setup)
	return validate
}

// Error lists the failed fields of a struct with a human readable message
// per field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

// Struct validates v. It returns nil, an *Error for field failures, or the
// validator's own error for invalid input such as a nil pointer.
func Struct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = fe.Translate(translator)
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace, so a nested
// failure reads "students[2].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case TagNotBlank:
		return fe.Field() + " cannot be blank"
	case TagDOB:
		return fe.Field() + " must look like dd/mm/yyyy or yyyy-mm-dd"
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func dateOfBirth(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	str = strings.TrimSpace(str)
	return str == "" || dobPattern.MatchString(str)
}
