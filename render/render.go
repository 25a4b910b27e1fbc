// Package render turns curated posts into the HTML shown on the feed page.
package render

import (
	"strings"
	"time"

	"sonicfeed/content"
	"sonicfeed/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultEmptyText = "No posts yet."

	defaultImageAlt   = "Post image"
	defaultEmbedTitle = "Embedded content"
	embedAllow        = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture; web-share"
	displayTimeFormat = "2006-01-02 15:04"
)

// Container receives the rendered nodes and replaces whatever it showed before.
type Container interface {
	Replace(nodes []*html.Node)
}

type Options struct {
	// Shown when there are no posts. Defaults to DefaultEmptyText.
	EmptyText string
	// Location for the human readable timestamps. Defaults to time.Local.
	Location *time.Location
	// Optional; labels text blocks with a lang attribute.
	Languages *content.LanguageDetector
}

// Render replaces the content of c with posts, in the given order.
func Render(c Container, posts []models.Post, opts Options) {
	c.Replace(Nodes(posts, opts))
}

// Nodes builds the node list Render hands to the container.
func Nodes(posts []models.Post, opts Options) []*html.Node {
	if len(posts) == 0 {
		text := opts.EmptyText
		if text == "" {
			text = DefaultEmptyText
		}
		empty := element(atom.Div, "class", "post-empty")
		empty.AppendChild(textNode(text))
		return []*html.Node{empty}
	}

	nodes := make([]*html.Node, 0, len(posts))
	for _, post := range posts {
		nodes = append(nodes, postNode(post, opts))
	}
	return nodes
}

// HTML serializes nodes.
func HTML(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Could not serialize feed")
			return ""
		}
	}
	return b.String()
}

func postNode(post models.Post, opts Options) *html.Node {
	article := element(atom.Article, "class", "post", "data-post-id", post.Id)

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	created := time.UnixMilli(post.CreatedAt)

	meta := element(atom.Div, "class", "post-meta")
	ts := element(atom.Time, "datetime", created.UTC().Format("2006-01-02T15:04:05.000Z"))
	ts.AppendChild(textNode(created.In(loc).Format(displayTimeFormat)))
	meta.AppendChild(ts)
	if post.Sticky {
		label := element(atom.Span, "class", "post-sticky-label")
		label.AppendChild(textNode("Stickied"))
		meta.AppendChild(label)
	}

	body := element(atom.Div, "class", "post-content")
	for _, block := range post.Blocks {
		if n := blockNode(block, opts); n != nil {
			body.AppendChild(n)
		}
	}

	article.AppendChild(meta)
	article.AppendChild(body)
	return article
}

func blockNode(block models.Block, opts Options) *html.Node {
	switch block.Type {
	case models.BlockText:
		if strings.TrimSpace(block.Text) == "" {
			return nil
		}
		var el *html.Node
		if block.Rich {
			el = element(atom.Div, "class", "post-text")
			for _, n := range content.SanitizeRichTextNodes(block.Text) {
				el.AppendChild(n)
			}
		} else {
			el = element(atom.P, "class", "post-text")
			el.AppendChild(textNode(block.Text))
		}
		if lang := opts.Languages.Detect(textContent(el)); lang != "" {
			el.Attr = append(el.Attr, html.Attribute{Key: "lang", Val: lang})
		}
		return el

	case models.BlockImage:
		src, ok := content.NormalizeImageSource(block.Src)
		if !ok {
			return nil
		}
		alt := block.Alt
		if alt == "" {
			alt = defaultImageAlt
		}
		return element(atom.Img, "loading", "lazy", "alt", alt, "src", src)

	case models.BlockEmbed:
		src, ok := content.NormalizeHTTPURL(block.Src)
		if !ok {
			return nil
		}
		title := block.Title
		if title == "" {
			title = defaultEmbedTitle
		}
		return element(atom.Iframe,
			"loading", "lazy",
			"referrerpolicy", "strict-origin-when-cross-origin",
			"allowfullscreen", "",
			"src", src,
			"title", title,
			"allow", embedAllow,
		)
	}
	return nil
}

// element creates a tag with attributes given as key, value pairs.
func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
