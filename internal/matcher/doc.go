// Package matcher locates excerpt spans inside a document even when
// whitespace, punctuation, or case differ between the two.
//
// Both texts are projected onto a skeleton (their lowercase alphanumeric
// runes) with a parallel index mapping each skeleton position back to the
// original text. Matching requires the skeletons to agree exactly; there is
// deliberately no fuzzy matching, because a false positive silently labels
// the wrong passage while a reported failure can be inspected.
package matcher
