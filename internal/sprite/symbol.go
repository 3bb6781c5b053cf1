package sprite

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// SVG is a vector sprite member.
type SVG struct {
	Name string
	Data []byte
}

var (
	svgOpen     = regexp.MustCompile(`(?is)<svg\b([^>]*)>`)
	svgClose    = regexp.MustCompile(`(?is)</svg\s*>`)
	attrViewBox = regexp.MustCompile(`(?i)\bviewBox\s*=\s*["']([^"']*)["']`)
	attrWidth   = regexp.MustCompile(`(?i)(?:^|\s)width\s*=\s*["']([\d.]+)(?:px)?["']`)
	attrHeight  = regexp.MustCompile(`(?i)(?:^|\s)height\s*=\s*["']([\d.]+)(?:px)?["']`)
)

// SymbolSprite combines SVGs into one document of <symbol> elements with ids
// "<folder>__<name>", referenced as <use href="sprites-<folder>.svg#<id>">.
func SymbolSprite(folder string, members []SVG) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" style="display:none">`)
	b.WriteByte('\n')
	for _, m := range members {
		open := svgOpen.FindSubmatchIndex(m.Data)
		if open == nil {
			return nil, fmt.Errorf("%s: no <svg> element", m.Name)
		}
		closes := svgClose.FindAllIndex(m.Data, -1)
		if len(closes) == 0 || closes[len(closes)-1][0] < open[1] {
			return nil, fmt.Errorf("%s: unterminated <svg> element", m.Name)
		}
		attrs := string(m.Data[open[2]:open[3]])
		inner := bytes.TrimSpace(m.Data[open[1]:closes[len(closes)-1][0]])

		fmt.Fprintf(&b, `<symbol id="%s"`, MemberName(folder, m.Name))
		if vb := viewBox(attrs); vb != "" {
			fmt.Fprintf(&b, ` viewBox="%s"`, vb)
		}
		b.WriteByte('>')
		b.Write(inner)
		b.WriteString("</symbol>\n")
	}
	b.WriteString("</svg>\n")
	return b.Bytes(), nil
}

func viewBox(attrs string) string {
	if m := attrViewBox.FindStringSubmatch(attrs); m != nil {
		return strings.TrimSpace(m[1])
	}
	w := attrWidth.FindStringSubmatch(attrs)
	h := attrHeight.FindStringSubmatch(attrs)
	if w != nil && h != nil {
		return "0 0 " + w[1] + " " + h[1]
	}
	return ""
}
