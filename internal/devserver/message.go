package devserver

import (
	"path/filepath"
	"strings"

	"github.com/ifamed/markup-boilerplate/internal/pipeline"
)

// Message is the reload notification sent to clients.
type Message struct {
	Command string `json:"command"`
	Path    string `json:"path"`
	LiveCSS bool   `json:"liveCSS"`
}

// messageFor builds the notification for a reload of files under root. Files
// are absolute; Path carries the URL path of the first one.
func messageFor(root string, scope pipeline.ReloadScope, files []string) Message {
	msg := Message{Command: "reload", Path: "/", LiveCSS: scope == pipeline.ReloadCSS}
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		msg.Path = "/" + filepath.ToSlash(rel)
		break
	}
	return msg
}
