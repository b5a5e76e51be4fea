package validator

import (
	"fmt"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

type rule struct {
	tag     string
	message string
	check   func(string) bool
}

// Custom tags on top of the built-in set. They only apply to string fields.
var rules = []rule{
	{tag: "urlpath", message: "{0} must be an absolute URL path", check: isURLPath},
}

// absolute path without query, fragment or whitespace
var reURLPath = regexp.MustCompile(`^/[A-Za-z0-9\-._~!$&'()*+,;=:@%/]*$`)

func isURLPath(p string) bool {
	if !reURLPath.MatchString(p) {
		return false
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

func registerRules(validate *validator.Validate, trans ut.Translator) error {
	for _, rl := range rules {
		check := rl.check
		err := validate.RegisterValidation(rl.tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && check(s)
		})
		if err != nil {
			return fmt.Errorf("validator: register %s: %w", rl.tag, err)
		}

		message := rl.message
		err = validate.RegisterTranslation(rl.tag, trans,
			func(t ut.Translator) error { return t.Add(rl.tag, message, false) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, err := t.T(fe.Tag(), fe.Field())
				if err != nil {
					return fe.Error()
				}
				return msg
			},
		)
		if err != nil {
			return fmt.Errorf("validator: translate %s: %w", rl.tag, err)
		}
	}
	return nil
}
