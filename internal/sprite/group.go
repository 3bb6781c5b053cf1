package sprite

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Group maps each folder to the slash paths beneath it, both sorted. Paths are
// relative to the sprites root, e.g. "iconsA/arrow.png". Files directly in the
// root have no folder and are ignored.
func Group(files []string) (map[string][]string, []string) {
	groups := make(map[string][]string)
	for _, f := range files {
		dir := path.Dir(f)
		if dir == "." || dir == "" {
			continue
		}
		folder := strings.SplitN(dir, "/", 2)[0]
		groups[folder] = append(groups[folder], f)
	}
	folders := make([]string, 0, len(groups))
	for folder, members := range groups {
		slices.Sort(members)
		folders = append(folders, folder)
	}
	slices.Sort(folders)
	return groups, folders
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Separator joins a folder prefix and a member slug. Slugs never contain it.
const Separator = "__"

// Slug converts a folder name into an identifier safe for CSS class names, Sass
// variables, and SVG ids: ASCII letters, digits, and single hyphens. Case is
// kept so folders differing only in case stay distinct.
func Slug(name string) string {
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}
	var b strings.Builder
	hyphen := false
	for _, r := range plain {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case !hyphen && b.Len() > 0:
			b.WriteByte('-')
			hyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "sprite"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "s-" + out
	}
	return out
}

// FileSlug is Slug for a member file name; the extension is dropped.
func FileSlug(name string) string {
	return Slug(strings.TrimSuffix(name, path.Ext(name)))
}

// MemberName returns the identifier of a member file inside the folder's sheet.
func MemberName(folder, file string) string {
	return Slug(folder) + Separator + FileSlug(path.Base(file))
}

// CheckUnique fails when two distinct names map to the same slug, since their
// sheets or identifiers would overwrite each other.
func CheckUnique(names []string, slug func(string) string) error {
	seen := make(map[string]string, len(names))
	for _, n := range names {
		s := slug(n)
		if prev, ok := seen[s]; ok && prev != n {
			return fmt.Errorf("%q and %q both map to %q, rename one of them", prev, n, s)
		}
		seen[s] = n
	}
	return nil
}

// SheetName returns the file name of the sheet for folder.
func SheetName(folder, ext string) string {
	return "sprites-" + Slug(folder) + ext
}

// FragmentName returns the stylesheet fragment name for folder.
func FragmentName(folder string) string {
	return "_sprites-" + Slug(folder) + ".scss"
}
