package validator

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var ErrTranslatorNotFound = errors.New("validator: english translator not found")

// rule is a custom tag with its english message; {0} is the field name.
type rule struct {
	tag     string
	message string
	check   validator.Func
}

// Transaction, guardian and challenge ids are opaque strings issued elsewhere.
var reIdentifier = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

var rules = []rule{
	{
		tag:     "identifier",
		message: "{0} must be 1-128 letters, digits or . _ : -",
		check: func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && reIdentifier.MatchString(s)
		},
	},
}

// V10ValidationError maps snake_case field names to english messages.
type V10ValidationError map[string]string

func (e V10ValidationError) Error() string {
	b, _ := json.Marshal(map[string]string(e))
	return "validation failed: " + string(b)
}

func (e V10ValidationError) Values() map[string]string { return e }

// V10Validator wraps go-playground/validator with english messages.
type V10Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	locale := en.New()
	trans, found := ut.New(locale, locale).GetTranslator("en")
	if !found {
		return nil, ErrTranslatorNotFound
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	for _, r := range rules {
		if err := register(validate, trans, r); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: validate, trans: trans}, nil
}

func (v *V10Validator) Validate(data any) error {
	var fieldErrs validator.ValidationErrors
	if err := v.validate.Struct(data); !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[toLowerSnake(fe.Field())] = fe.Translate(v.trans)
	}
	return out
}

func register(validate *validator.Validate, trans ut.Translator, r rule) error {
	if err := validate.RegisterValidation(r.tag, r.check); err != nil {
		return err
	}

	return validate.RegisterTranslation(r.tag, trans,
		func(t ut.Translator) error { return t.Add(r.tag, r.message, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// toLowerSnake keeps initialisms together: TransactionID becomes transaction_id.
func toLowerSnake(s string) string {
	rs := []rune(s)
	var b strings.Builder

	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			startsWord := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if !unicode.IsUpper(prev) || startsWord {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
