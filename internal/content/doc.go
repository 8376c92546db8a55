// Package content is the local multilingual content store that translation
// jobs read from and write back into.
//
// It models the pieces of a CMS the queue touches: posts with their editorial
// fields, ordered post metadata, taxonomy terms with per-language
// equivalents, and translation groups mapping a language tag to the post that
// holds that language's version.
//
// Language comparisons are case-insensitive; tags are stored as given.
package content
