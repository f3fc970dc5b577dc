// Package connectors holds the adapters that feed documents into the index
// from outside the HTTP upload path. The filesystem connector watches a source
// directory so the permanent corpus follows edits on disk.
package connectors
