package models

// Field names used by the card form
const (
	FieldName       = "name"
	FieldLastname   = "lastname"
	FieldCardNumber = "cardNumber"
	FieldDate       = "date"
	FieldCVV        = "cvv"
)

// Fields lists the form fields in render order
var Fields = []string{FieldName, FieldLastname, FieldCardNumber, FieldDate, FieldCVV}

// WrongInput identifies the field the backend rejected
type WrongInput string

const (
	WrongCardNumber WrongInput = "CardNumber"
	WrongExpiration WrongInput = "Expiration"
	WrongCVV        WrongInput = "CVV"
)

// WrongInputFor maps a form field to the identifier the backend uses for it.
// Name and lastname are never sent, so they have no identifier.
func WrongInputFor(field string) (WrongInput, bool) {
	switch field {
	case FieldCardNumber:
		return WrongCardNumber, true
	case FieldDate:
		return WrongExpiration, true
	case FieldCVV:
		return WrongCVV, true
	}
	return "", false
}

// FormValues represents the values currently entered in the card form
type FormValues struct {
	Name       string `form:"name" json:"name"`
	Lastname   string `form:"lastname" json:"lastname"`
	CardNumber string `form:"cardNumber" json:"cardNumber"`
	Date       string `form:"date" json:"date"`
	CVV        string `form:"cvv" json:"cvv"`
}

// Get returns the value of a field by name
func (v FormValues) Get(field string) string {
	switch field {
	case FieldName:
		return v.Name
	case FieldLastname:
		return v.Lastname
	case FieldCardNumber:
		return v.CardNumber
	case FieldDate:
		return v.Date
	case FieldCVV:
		return v.CVV
	}
	return ""
}

// With returns a copy of v with field set to value. Unknown fields are ignored.
func (v FormValues) With(field, value string) FormValues {
	switch field {
	case FieldName:
		v.Name = value
	case FieldLastname:
		v.Lastname = value
	case FieldCardNumber:
		v.CardNumber = value
	case FieldDate:
		v.Date = value
	case FieldCVV:
		v.CVV = value
	}
	return v
}

// ValidationErrors maps a field name to whether its required rule is violated
type ValidationErrors map[string]bool

// Any reports whether at least one rule is violated
func (e ValidationErrors) Any() bool {
	for _, violated := range e {
		if violated {
			return true
		}
	}
	return false
}
