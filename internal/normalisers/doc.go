// Package normalisers provides the registry that turns uploaded bytes into
// text. Format-specific Normaliser implementations live in subpackages; the
// registry picks one by MIME type, deriving the type from the file extension
// when the caller does not supply it.
package normalisers
