// Package validator validates request and dependency structs with
// go-playground/validator and reports failures keyed by snake_case field name.
package validator
