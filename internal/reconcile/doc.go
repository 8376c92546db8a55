// Package reconcile writes a finished translation back into the content
// store.
//
// Three outcomes are possible for a translated body and a target language:
//   - the source post is already in the target language: its body is
//     overwritten in place;
//   - the post's translation group has a member for the target language: that
//     member's body is overwritten;
//   - otherwise a new post is cloned from the source, assigned the target
//     language, linked into the group, and given the source's metadata and
//     language-equivalent taxonomy terms.
//
// Repeated translations of the same post overwrite each other; the last
// writer wins.
package reconcile
