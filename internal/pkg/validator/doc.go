// Package validator provides a small validation abstraction for settings and
// request structs.
//
// Callers depend on the Validator interface. The go-playground/validator v10
// implementation lives in this package together with the custom rules the
// gate needs, such as urlpath for configured route paths.
package validator
