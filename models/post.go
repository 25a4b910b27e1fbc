package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrCorruptPost = errors.New("corrupt post")
	ErrNotArray    = errors.New("post collection is not an array")
)

// Post is one feed entry.
type Post struct {
	Id             string  `json:"id"`
	CreatedAt      int64   `json:"createdAt"`
	Sticky         bool    `json:"sticky"`
	StickyPosition *int    `json:"stickyPosition"`
	Blocks         []Block `json:"blocks"`
}

// Origins of a feed snapshot
const (
	OriginSource = "source"
	OriginStore  = "store"
)

// FeedSnapshot is the ordered result of one curation pass. It is never persisted.
type FeedSnapshot struct {
	Posts      []Post `json:"posts"`
	MaxAgeDays int    `json:"maxAgeDays"`
	Origin     string `json:"origin"`
}

// UnmarshalJSON rejects posts without a numeric createdAt. Everything else is
// decoded leniently.
func (p *Post) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ErrCorruptPost
	}

	createdAt, ok := fields["createdAt"]
	if !ok {
		return fmt.Errorf("%w: missing createdAt", ErrCorruptPost)
	}
	var ts float64
	if err := json.Unmarshal(createdAt, &ts); err != nil || string(createdAt) == "null" {
		return fmt.Errorf("%w: createdAt is not a number", ErrCorruptPost)
	}
	if math.IsNaN(ts) || math.IsInf(ts, 0) || math.Abs(ts) >= math.MaxInt64 {
		return fmt.Errorf("%w: createdAt out of range", ErrCorruptPost)
	}

	*p = Post{CreatedAt: int64(math.Trunc(ts))}
	p.Id, _ = stringField(fields, "id")
	p.Sticky = boolField(fields, "sticky")
	if n, ok := leadingIntValue(fields["stickyPosition"]); ok {
		p.StickyPosition = &n
	}
	p.Blocks = decodeBlocks(fields["blocks"])
	return nil
}

func decodeBlocks(raw json.RawMessage) []Block {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []Block{}
	}
	blocks := make([]Block, 0, len(elems))
	for _, elem := range elems {
		var b Block
		if err := json.Unmarshal(elem, &b); err != nil {
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// ParsePosts decodes a serialized post collection. Elements that are not valid
// posts are dropped. Only a document that is not a JSON array is an error.
func ParsePosts(data []byte) ([]Post, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return []Post{}, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if elems == nil {
		return []Post{}, ErrNotArray
	}
	return decodePosts(elems), nil
}

func decodePosts(elems []json.RawMessage) []Post {
	posts := make([]Post, 0, len(elems))
	for _, elem := range elems {
		var p Post
		if err := json.Unmarshal(elem, &p); err != nil {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// ClonePosts returns a copy of posts that shares no slices with the input.
func ClonePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = p
		if p.StickyPosition != nil {
			n := *p.StickyPosition
			out[i].StickyPosition = &n
		}
		out[i].Blocks = append([]Block(nil), p.Blocks...)
	}
	return out
}
