package models

import (
	"encoding/json"
	"errors"
)

// BlockType is the discriminant of a content block.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
	// BlockEmbed keeps the "iframe" tag used by persisted feeds.
	BlockEmbed BlockType = "iframe"
)

var ErrCorruptBlock = errors.New("corrupt block")

// Block is one typed unit of content within a post. Which fields carry meaning
// depends on Type:
//
//	text   -> Text, Rich
//	image  -> Src, Alt
//	iframe -> Src, Title
//
// Blocks with an unknown Type keep their original JSON so they survive a
// load/save round trip. Renderers skip them.
type Block struct {
	Type  BlockType
	Text  string
	Rich  bool
	Src   string
	Alt   string
	Title string

	raw json.RawMessage
}

func TextBlock(text string, rich bool) Block {
	return Block{Type: BlockText, Text: text, Rich: rich}
}

func ImageBlock(src, alt string) Block {
	return Block{Type: BlockImage, Src: src, Alt: alt}
}

func EmbedBlock(src, title string) Block {
	return Block{Type: BlockEmbed, Src: src, Title: title}
}

// Known reports whether the block type is one the feed knows how to render.
func (b Block) Known() bool {
	switch b.Type {
	case BlockText, BlockImage, BlockEmbed:
		return true
	}
	return false
}

type textBlockJSON struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
	Rich bool      `json:"rich,omitempty"`
}

type imageBlockJSON struct {
	Type BlockType `json:"type"`
	Src  string    `json:"src"`
	Alt  string    `json:"alt,omitempty"`
}

type embedBlockJSON struct {
	Type  BlockType `json:"type"`
	Src   string    `json:"src"`
	Title string    `json:"title,omitempty"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockText:
		return json.Marshal(textBlockJSON{Type: b.Type, Text: b.Text, Rich: b.Rich})
	case BlockImage:
		return json.Marshal(imageBlockJSON{Type: b.Type, Src: b.Src, Alt: b.Alt})
	case BlockEmbed:
		return json.Marshal(embedBlockJSON{Type: b.Type, Src: b.Src, Title: b.Title})
	}
	if len(b.raw) > 0 {
		return b.raw, nil
	}
	return json.Marshal(map[string]string{"type": string(b.Type)})
}

// UnmarshalJSON decodes leniently: fields holding the wrong JSON type are
// treated as absent. Only a non-object value is an error.
func (b *Block) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ErrCorruptBlock
	}

	typ, _ := stringField(fields, "type")
	*b = Block{Type: BlockType(typ)}

	switch b.Type {
	case BlockText:
		b.Text, _ = stringField(fields, "text")
		b.Rich = boolField(fields, "rich")
	case BlockImage:
		b.Src, _ = stringField(fields, "src")
		b.Alt, _ = stringField(fields, "alt")
	case BlockEmbed:
		b.Src, _ = stringField(fields, "src")
		b.Title, _ = stringField(fields, "title")
	default:
		b.raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// boolField is true only for a literal JSON true.
func boolField(fields map[string]json.RawMessage, name string) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v
}
