package content

import (
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Inline formatting elements that are recreated as-is.
var allowedInline = map[atom.Atom]bool{
	atom.B:      true,
	atom.Strong: true,
	atom.I:      true,
	atom.Em:     true,
	atom.U:      true,
	atom.S:      true,
}

// Block elements are flattened into line breaks around their content.
var blockish = map[atom.Atom]bool{
	atom.Div: true, atom.P: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Main: true,
	atom.Nav: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Figure: true, atom.Figcaption: true,
	atom.Table: true, atom.Tr: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
}

// Elements whose children are code or styling rather than user text.
var discarded = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
}

var (
	boldPattern      = regexp.MustCompile(`^(bold|bolder|[6-9]00)$`)
	italicPattern    = regexp.MustCompile(`^(italic|oblique)\b`)
	underlinePattern = regexp.MustCompile(`\bunderline\b`)
	strikePattern    = regexp.MustCompile(`\b(line-through|strikethrough)\b`)
)

// SanitizeRichText rewrites untrusted markup into the inline subset the feed
// renders: b, strong, i, em, u, s, br and links to http(s) targets. The result
// is built as a new tree, so nothing from the input survives unless it was
// explicitly recreated.
func SanitizeRichText(raw string) string {
	nodes := SanitizeRichTextNodes(raw)
	if len(nodes) == 0 {
		return ""
	}

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Could not render sanitized markup")
			return ""
		}
	}
	return b.String()
}

// SanitizeRichTextNodes is SanitizeRichText without the final serialization.
// The returned nodes are detached and may be appended to another tree.
func SanitizeRichTextNodes(raw string) []*html.Node {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	parsed, err := html.ParseFragment(strings.NewReader(raw), context)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Could not parse rich text")
		return nil
	}

	out := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, n := range parsed {
		cleanNode(n, out)
	}

	for out.FirstChild != nil && isBreak(out.FirstChild) {
		out.RemoveChild(out.FirstChild)
	}
	for out.LastChild != nil && isBreak(out.LastChild) {
		out.RemoveChild(out.LastChild)
	}

	var nodes []*html.Node
	for out.FirstChild != nil {
		n := out.FirstChild
		out.RemoveChild(n)
		nodes = append(nodes, n)
	}
	return nodes
}

func cleanNode(n *html.Node, parent *html.Node) {
	switch n.Type {
	case html.TextNode:
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: n.Data})
		return
	case html.ElementNode:
	default:
		return
	}

	switch {
	case n.DataAtom == atom.Br:
		parent.AppendChild(newElement(atom.Br))
	case n.DataAtom == atom.Span:
		cleanStyleWrapper(n, parent)
	case n.DataAtom == atom.A:
		cleanLink(n, parent)
	case allowedInline[n.DataAtom]:
		el := newElement(n.DataAtom)
		parent.AppendChild(el)
		cleanChildren(n, el)
	case blockish[n.DataAtom]:
		appendBreak(parent)
		cleanChildren(n, parent)
		appendBreak(parent)
	case discarded[n.DataAtom]:
	default:
		cleanChildren(n, parent)
	}
}

func cleanChildren(n *html.Node, parent *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cleanNode(c, parent)
	}
}

// cleanLink keeps a link only when its href is an http(s) URL and it is not
// inside another kept link. Rejected links keep their text.
func cleanLink(n *html.Node, parent *html.Node) {
	href, ok := NormalizeHTTPURL(attr(n, "href"))
	if !ok || insideLink(parent) {
		cleanChildren(n, parent)
		return
	}

	a := newElement(atom.A)
	a.Attr = []html.Attribute{
		{Key: "href", Val: href},
		{Key: "rel", Val: "noopener noreferrer"},
		{Key: "target", Val: "_blank"},
	}
	parent.AppendChild(a)
	cleanChildren(n, a)
}

// insideLink reports whether n or one of its output ancestors is a link.
// Nested links do not survive a reparse.
func insideLink(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			return true
		}
	}
	return false
}

// cleanStyleWrapper turns presentational spans into nested formatting tags.
// Only font-weight, font-style and text-decoration are looked at.
func cleanStyleWrapper(n *html.Node, parent *html.Node) {
	var bold, italic, underline, strike bool
	for _, decl := range strings.Split(strings.ToLower(attr(n, "style")), ";") {
		prop, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		switch strings.TrimSpace(prop) {
		case "font-weight":
			bold = boldPattern.MatchString(value)
		case "font-style":
			italic = italicPattern.MatchString(value)
		case "text-decoration", "text-decoration-line":
			underline = underlinePattern.MatchString(value)
			strike = strikePattern.MatchString(value)
		}
	}

	out := parent
	for _, wrap := range []struct {
		on  bool
		tag atom.Atom
	}{
		{bold, atom.Strong},
		{italic, atom.Em},
		{underline, atom.U},
		{strike, atom.S},
	} {
		if !wrap.on {
			continue
		}
		el := newElement(wrap.tag)
		out.AppendChild(el)
		out = el
	}
	cleanChildren(n, out)
}

// appendBreak adds a line break unless parent already ends with one.
func appendBreak(parent *html.Node) {
	if parent.LastChild != nil && isBreak(parent.LastChild) {
		return
	}
	parent.AppendChild(newElement(atom.Br))
}

func isBreak(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Br
}

func newElement(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
