// Package devserver serves the destination tree during development and pushes
// reload notifications to connected browsers.
//
// HTML responses get a small client injected that connects over WebSocket and
// falls back to Server-Sent Events. A reload either refreshes the page or, for
// stylesheet-only changes, swaps the stylesheets in place.
package devserver
