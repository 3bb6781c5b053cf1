// Package sprite builds sprite sheets. Source images are grouped by their
// immediate sub-folder; each folder yields one sheet named sprites-<folder> and,
// for raster sheets, one stylesheet fragment whose variables and classes are
// prefixed with the folder slug so folders never collide.
package sprite
