// Package imaging provides the image handling used by the OCR pipeline.
//
// It inspects rasterized pages (format and pixel dimensions), decodes them,
// prepares optional recognition-only variants, and parses overlay colors.
// All coordinates follow the Go image convention where (0,0) is the top-left
// corner, X increases rightward, and Y increases downward.
//
// # Formats
//
// Inspect sniffs the content rather than trusting file extensions. Only PNG
// and JPEG are accepted, the two encodings the rasterizer is asked for.
//
// # Preprocessing
//
// Preprocess never changes the pixel dimensions of an image. Recognized word
// boxes are reported against the preprocessed image and placed on the page
// of the original one, so the two must share a coordinate space.
//
// # Colors
//
// ParseColor accepts "#RRGGBB" and "#RGB" strings and returns components in
// the 0..1 range used by PDF color operators.
package imaging
