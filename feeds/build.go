package feeds

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sonicfeed/content"
	"sonicfeed/models"

	"github.com/google/uuid"
)

var ErrInvalidBlock = errors.New("invalid block")

// BlockInput is a block as entered by an author. Url is the image source or
// the embed URL or snippet.
type BlockInput struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Rich  bool   `json:"rich,omitempty"`
	Url   string `json:"url,omitempty"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
}

// BuildBlocks validates author input. Empty text blocks are skipped; an
// image or embed that does not normalize fails the whole batch.
func BuildBlocks(inputs []BlockInput) ([]models.Block, error) {
	blocks := make([]models.Block, 0, len(inputs))
	for i, in := range inputs {
		switch in.Type {
		case "text":
			text := strings.TrimSpace(in.Text)
			if in.Rich {
				text = content.SanitizeRichText(text)
			}
			if text == "" {
				continue
			}
			blocks = append(blocks, models.TextBlock(text, in.Rich))
		case "image":
			src, ok := content.NormalizeImageSource(in.Url)
			if !ok {
				return nil, fmt.Errorf("%w: block %d: image source %q", ErrInvalidBlock, i, in.Url)
			}
			blocks = append(blocks, models.ImageBlock(src, strings.TrimSpace(in.Alt)))
		case "embed", string(models.BlockEmbed):
			src, ok := content.ParseEmbedInput(in.Url)
			if !ok {
				return nil, fmt.Errorf("%w: block %d: embed %q", ErrInvalidBlock, i, in.Url)
			}
			blocks = append(blocks, models.EmbedBlock(src, strings.TrimSpace(in.Title)))
		default:
			return nil, fmt.Errorf("%w: block %d: unknown type %q", ErrInvalidBlock, i, in.Type)
		}
	}
	return blocks, nil
}

// BuildPost wraps blocks in a new, non-sticky post.
func BuildPost(blocks []models.Block) models.Post {
	if blocks == nil {
		blocks = []models.Block{}
	}
	return models.Post{
		Id:        uuid.New().String(),
		CreatedAt: time.Now().UnixMilli(),
		Blocks:    blocks,
	}
}
