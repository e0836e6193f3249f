package core

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	machineIDTag   = "machineid"
	machineIDText  = "not a valid machine hostname (expected e.g. e3r2p5)"
	machineIDRegex = regexp.MustCompile(`^[a-z][a-z0-9]*r\d+p\d+$`)

	byteMaxTag  = "bytemax"
	byteMaxText = "this value is too long"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(machineIDTag, machineIDValidation)
	RegisterCustomTranslation(validate, translator, machineIDTag, machineIDText)

	_ = validate.RegisterValidation(byteMaxTag, byteMaxValidation)
	RegisterCustomTranslation(validate, translator, byteMaxTag, byteMaxText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// machineIDValidation matches campus machine hostnames (<cluster>r<row>p<pos>).
func machineIDValidation(fl validator.FieldLevel) bool {
	return machineIDRegex.MatchString(fl.Field().String())
}

// byteMaxValidation caps the UTF-8 encoded size of a string field.
// The signage hardware rejects payloads above its per-slide byte limit,
// so the limit is on bytes, not runes.
func byteMaxValidation(fl validator.FieldLevel) bool {
	max, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= max
}
