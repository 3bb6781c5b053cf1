// Package paths derives the per-asset-class source, destination, and watch layout
// from the project configuration.
//
// Resolve is pure: it never touches the filesystem. Glob.Expand is the only
// function in the package that reads directories.
package paths
