// Package ocr recognizes words and their positions on rendered page images
// using Tesseract.
//
// # Backends
//
// A Backend produces initialized Recognizers for a language token such as
// "por+eng". Two backends exist:
//
//   - gosseract: in-process bindings (github.com/otiai10/gosseract/v2). Only
//     available in cgo builds with libtesseract installed.
//   - cli: runs the tesseract executable per page and parses its TSV output.
//     Works in any build as long as tesseract is on PATH.
//
// NewBackend("auto", ...) picks gosseract when it was compiled in and the cli
// backend otherwise.
//
// # Sessions
//
// Open initializes one Session per conversion job. If the requested languages
// cannot be loaded, the fallback language (English by default) is tried before
// giving up with an *InitError. A Session must be closed exactly once; Close is
// idempotent and Recognize refuses to run afterwards.
//
// Sessions are not safe for concurrent use. Pages are recognized one at a
// time, and a recognition call is not interrupted once started; ctx is only
// checked before the call.
//
// # Prerequisites
//
// Tesseract and language data must be installed on the host:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-por
//   - macOS: brew install tesseract tesseract-lang
//
// # Results
//
// Words carry their text, a confidence in 0..1 and a bounding box in image
// pixels with the origin at the top-left corner. Words with empty text,
// non-finite coordinates or zero-area boxes are dropped before they reach the
// caller.
package ocr
