package observation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"bidvault/internal/domain"
)

const notBlankTag = "notblank"

// Validator checks Metadata before an observation is queued.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator returns a Validator reporting errors by JSON field name.
func NewValidator() *Validator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(metadataStructValidation, domain.Metadata{})

	_ = v.RegisterTranslation(notBlankTag, trans,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string { return "this field cannot be blank" },
	)

	return &Validator{validate: v, translator: trans}
}

// Metadata validates m, returning a *ValidationError listing every bad field.
func (v *Validator) Metadata(m domain.Metadata) error {
	err := v.validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newValidationError(err)
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return newValidationError(err, flds...)
}

// metadataStructValidation rejects ids that are present but only whitespace.
func metadataStructValidation(sl validator.StructLevel) {
	m, ok := sl.Current().Interface().(domain.Metadata)
	if !ok {
		return
	}
	for _, f := range []struct {
		val, json, name string
	}{
		{string(m.ObservationID), "observation_id", "ObservationID"},
		{string(m.UserID), "user_id", "UserID"},
		{string(m.SessionID), "session_id", "SessionID"},
	} {
		if f.val != "" && strings.TrimSpace(f.val) == "" {
			sl.ReportError(f.val, f.json, f.name, notBlankTag, "")
		}
	}
}
