// Package pagination implements the page-by-page traversal of the club kit
// directory.
//
// The controller cycles through four states:
//
//	AwaitingPageLoad -> PageReady -> Advancing -> (AwaitingPageLoad | Done)
//
// A page counts as loaded once the active page indicator differs from the
// last confirmed page. The thumbnail network request is used as an early
// hint but is never required. Exactly one completion policy decides Done:
//
//   - next-disabled: the next control is missing or disabled on a ready page
//   - max-page: the active page equals the highest numeric page label
//   - markup-unchanged: clicking next leaves the table markup unchanged for
//     the whole load timeout
package pagination
