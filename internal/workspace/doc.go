// Package workspace manages staging directories.
//
// Pipelines render their whole output into a staging directory created next to the
// destination tree, then rename each file into place. Keeping the stage on the same
// filesystem as the destination makes every rename atomic, so an interrupted run
// leaves each destination file either in its prior state or fully replaced.
package workspace
