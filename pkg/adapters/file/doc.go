// Package file provides filesystem adapters: a graph source reading YAML or
// JSON documents with hot reload, and a context store keeping one JSON file
// per session.
package file
