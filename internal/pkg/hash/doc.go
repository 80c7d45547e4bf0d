// Package hash provides keyed digests for identifiers that must not be
// stored in the clear, such as challenge ids used as store keys.
package hash
