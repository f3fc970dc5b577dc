// Package domain holds the types every other layer shares: uploads and
// extracted documents, chunks and their scopes, answers, settings, and the
// sentinel errors callers match with errors.Is.
//
// Only the standard library may be imported here.
package domain
