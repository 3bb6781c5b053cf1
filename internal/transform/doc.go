// Package transform wraps the external collaborators that do the actual asset
// transformation work: the include engine, esbuild, Dart Sass, the HTML/SVG
// minifier, raster image optimizers, and the build banner.
//
// Each collaborator is a small type with a narrow method set so pipeline steps can
// be tested with fakes and the heavy dependencies stay in one package.
package transform
