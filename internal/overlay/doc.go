// Package overlay merges ordered JSON fragments into a single object.
//
// Later fragments win per top-level key ("latest annotation supersedes");
// repeated assignment never accumulates into an array. The merged object can
// be re-encoded as compact JSON, pretty JSON, a line-oriented URL-encoded
// field table for interchange with line-based text pipes, or a
// %(key)s-substituted template string used to generate session export blocks.
package overlay
