package transform

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
)

// Banner renders the preserved header comment prepended to production scripts
// and stylesheets: the project name and, inside a git checkout, the short HEAD
// revision. The revision is looked up once.
type Banner struct {
	name string
	root string

	once sync.Once
	text []byte
}

// NewBanner creates a banner for the project rooted at root.
func NewBanner(name, root string) *Banner {
	return &Banner{name: name, root: root}
}

// Bytes returns the banner, ending in a newline.
func (b *Banner) Bytes() []byte {
	b.once.Do(func() {
		parts := []string{b.name}
		if rev := headRevision(b.root); rev != "" {
			parts = append(parts, rev)
		}
		b.text = []byte("/*! " + strings.Join(parts, " ") + " */\n")
	})
	return b.text
}

// Prepend returns code with the banner in front.
func (b *Banner) Prepend(code []byte) []byte {
	text := b.Bytes()
	out := make([]byte, 0, len(text)+len(code))
	return append(append(out, text...), code...)
}

func headRevision(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		slog.Debug("No HEAD revision for banner", "error", err)
		return ""
	}
	return head.Hash().String()[:7]
}
