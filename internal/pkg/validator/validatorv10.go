package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound is returned when the English translator cannot be built.
var ErrTranslatorNotFound = errors.New("validator: translator not found")

// V10ValidationError maps a dotted snake_case field path, relative to the
// validated struct ("routes.verify_path"), to an English message.
type V10ValidationError map[string]string

func (e V10ValidationError) Error() string {
	if len(e) == 0 {
		return "validation error"
	}
	b, _ := json.Marshal(map[string]string(e)) //nolint:errcheck // string map always encodes
	return string(b)
}

func (e V10ValidationError) Values() map[string]string {
	return e
}

// V10Validator is a Validator on go-playground/validator with English messages.
type V10Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	english := en.New()
	trans, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := registerRules(validate, trans); err != nil {
		return nil, err
	}

	return &V10Validator{validate: validate, trans: trans}, nil
}

// Validate returns a V10ValidationError listing every failed field, or the
// underlying error when data is not a struct.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)

	var failed validator.ValidationErrors
	if !errors.As(err, &failed) {
		return err
	}

	out := make(V10ValidationError, len(failed))
	for _, fe := range failed {
		out[fieldKey(fe.Namespace())] = fe.Translate(v.trans)
	}
	return out
}

func fieldKey(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		rest = namespace
	}

	parts := strings.Split(rest, ".")
	for i := range parts {
		parts[i] = snake(parts[i])
	}
	return strings.Join(parts, ".")
}

// snake lower-cases a Go identifier with underscores, keeping initialisms
// whole: TOTPSecret becomes totp_secret and userID becomes user_id.
func snake(s string) string {
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
