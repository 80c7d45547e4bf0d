package validator

// Validator validates tagged structs.
type Validator interface {
	// Validate returns nil or an error describing every failing field.
	Validate(data any) error
}
