// Package normalisers provides implementations of the Normaliser interface
// for the supported upload formats. Each normaliser extracts plain text
// from one family of file extensions.
//
// Normalisers are registered with the Registry at startup; Defaults returns
// a registry with every built-in normaliser.
package normalisers
