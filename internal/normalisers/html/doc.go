// Package html provides a Normaliser for HTML documents.
// Scripts, styles and other invisible elements are dropped, block elements
// become line breaks and entities are decoded.
package html
