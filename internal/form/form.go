// Package form validates and simulates submission of the site's forms.
package form

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// FieldKind is the input type of a field; it selects the shape check.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindTel      FieldKind = "tel"
	KindTextarea FieldKind = "textarea"
	KindHidden   FieldKind = "hidden"
)

// Type selects the success messages of a form.
type Type string

const (
	TypeContact    Type = "contact"
	TypeNewsletter Type = "newsletter"
	TypeRegister   Type = "register"
	TypeGeneric    Type = "generic"
)

// Field describes one input.
type Field struct {
	Name      string
	Label     string
	Kind      FieldKind
	Required  bool
	MinLength int
}

// Form is a named set of fields posted to /forms/{Name}.
type Form struct {
	Name   string
	Type   Type
	Fields []Field
}

// Field returns the field called name.
func (f Form) Field(name string) (Field, bool) {
	for _, fl := range f.Fields {
		if fl.Name == name {
			return fl, true
		}
	}
	return Field{}, false
}

// ClassNameField carries the class a registration is for.
const ClassNameField = "class-name"

// DefaultForms returns the forms the storefront renders.
func DefaultForms() []Form {
	return []Form{
		{Name: "contact", Type: TypeContact, Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
			{Name: "phone", Label: "Phone", Kind: KindTel},
			{Name: "subject", Label: "Subject", Kind: KindText},
			{Name: "message", Label: "Message", Kind: KindTextarea, Required: true, MinLength: 10},
		}},
		{Name: "newsletter", Type: TypeNewsletter, Fields: []Field{
			{Name: "name", Label: "First Name", Kind: KindText},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
		}},
		{Name: "register", Type: TypeRegister, Fields: []Field{
			{Name: ClassNameField, Kind: KindHidden},
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
			{Name: "phone", Label: "Phone", Kind: KindTel, Required: true},
			{Name: "notes", Label: "Notes", Kind: KindTextarea},
		}},
		{Name: "special-order", Type: TypeGeneric, Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
			{Name: "details", Label: "What are you looking for?", Kind: KindTextarea, Required: true, MinLength: 10},
		}},
	}
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[\d\s\-()+]+$`)
)

// Field error messages.
const (
	MsgRequired     = "This field is required"
	MsgInvalidEmail = "Please enter a valid email address"
	MsgInvalidPhone = "Please enter a valid phone number"
)

// ValidEmail reports whether s has the shape local@domain.tld.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidPhone reports whether s holds only digits and separators with at
// least ten digits.
func ValidPhone(s string) bool {
	if !phoneRe.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 10
}

// ValidateField checks a single value and returns the first failing rule's
// message, or "" when the value is acceptable. Empty optional fields pass.
func ValidateField(f Field, value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "" && f.Required:
		return MsgRequired
	case value == "":
		return ""
	case f.Kind == KindEmail && !ValidEmail(value):
		return MsgInvalidEmail
	case f.Kind == KindTel && !ValidPhone(value):
		return MsgInvalidPhone
	case f.MinLength > 0 && len([]rune(value)) < f.MinLength:
		return "Must be at least " + strconv.Itoa(f.MinLength) + " characters"
	}
	return ""
}
