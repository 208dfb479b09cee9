// Package nlu is a small reference implementation of ports.Classifier.
//
// Intents are recognized by full-text search over the training utterances
// with an in-memory Bleve index. Enum entities match any of their values as
// whole words, case-insensitively, and report the first value as canonical
// text. Regex entities report the matched text. Sentiment comes from a small
// word lexicon.
package nlu
