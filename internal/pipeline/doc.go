// Package pipeline runs the ordered transformation steps of one asset class and
// writes the result into the class destination directory.
//
// A run either writes the complete output of the class or leaves the destination
// untouched: every step operates on in-memory assets, and only after the last step
// succeeds are the files staged next to the destination tree and renamed into place.
package pipeline
