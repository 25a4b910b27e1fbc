package feeds

import (
	"fmt"
	"strings"

	"sonicfeed/config"
	"sonicfeed/content"
	"sonicfeed/models"

	log "github.com/sirupsen/logrus"
)

// SeedPosts turns configured seed entries into posts. Invalid image and embed
// URLs are dropped. Ids and timestamps are fixed so the same seeds always
// produce the same posts.
func SeedPosts(seeds []config.TomlSeed, createdAt int64) []models.Post {
	posts := make([]models.Post, 0, len(seeds))
	for i, seed := range seeds {
		blocks := []models.Block{}
		for _, b := range seed.Blocks {
			switch b.Type {
			case "text":
				if text := strings.TrimSpace(b.Content); text != "" {
					blocks = append(blocks, models.TextBlock(text, false))
				}
			case "image":
				if src, ok := content.NormalizeImageSource(b.Url); ok {
					blocks = append(blocks, models.ImageBlock(src, ""))
				} else {
					log.WithFields(log.Fields{"url": b.Url}).Warn("Skipping seed image with invalid url")
				}
			case "embed":
				if src, ok := content.ParseEmbedInput(b.Url); ok {
					blocks = append(blocks, models.EmbedBlock(src, ""))
				} else {
					log.WithFields(log.Fields{"url": b.Url}).Warn("Skipping seed embed with invalid url")
				}
			default:
				log.WithFields(log.Fields{"type": b.Type}).Warn("Unknown seed block type")
			}
		}

		posts = append(posts, models.Post{
			Id:        fmt.Sprintf("seed-%d", i+1),
			CreatedAt: createdAt,
			Blocks:    blocks,
		})
	}
	return posts
}
