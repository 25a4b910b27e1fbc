/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"sonicfeed/feeds"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func postCmd() *cli.Command {
	return &cli.Command{
		Name:  "post",
		Usage: "Add a post to the feed",
		Description: `Adds a post built from text, image and embed blocks to the stored feed.

		Blocks are taken from the flags in the order text, image, embed. Without
		any block flags the blocks are asked for interactively.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "text",
				Usage: "Text block, can be repeated",
			},
			&cli.BoolFlag{
				Name:  "rich",
				Usage: "Treat text blocks as rich text markup",
			},
			&cli.StringSliceFlag{
				Name:  "image",
				Usage: "Image URL or /assets/images/ path, can be repeated",
			},
			&cli.StringFlag{
				Name:  "alt",
				Usage: "Alternative text for the image blocks",
			},
			&cli.StringSliceFlag{
				Name:  "embed",
				Usage: "Embed URL or iframe snippet, can be repeated",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title for the embed blocks",
			},
			&cli.IntFlag{
				Name:  "sticky",
				Usage: "Stick the post at this position (1 is the top)",
			},
			redisAddrFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			inputs := flagBlocks(ctx)
			if len(inputs) == 0 {
				if inputs, err = promptBlocks(); err != nil {
					return err
				}
			}

			blocks, err := feeds.BuildBlocks(inputs)
			if err != nil {
				return err
			}
			if len(blocks) == 0 {
				return fmt.Errorf("a post needs at least one block")
			}

			post := feeds.BuildPost(blocks)
			if position := ctx.Int("sticky"); position > 0 {
				post.Sticky = true
				post.StickyPosition = &position
			}

			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			posts := append(store.Load(ctx.Context), post)
			if !store.Save(ctx.Context, posts) {
				return fmt.Errorf("could not save the post")
			}
			log.WithFields(log.Fields{
				"id":     post.Id,
				"blocks": len(post.Blocks),
			}).Info("Post added")

			notifyServers(ctx.Context, cfg)
			fmt.Println(post.Id)
			return nil
		},
	}
}

func flagBlocks(ctx *cli.Context) []feeds.BlockInput {
	inputs := []feeds.BlockInput{}
	for _, text := range ctx.StringSlice("text") {
		inputs = append(inputs, feeds.BlockInput{Type: "text", Text: text, Rich: ctx.Bool("rich")})
	}
	for _, image := range ctx.StringSlice("image") {
		inputs = append(inputs, feeds.BlockInput{Type: "image", Url: image, Alt: ctx.String("alt")})
	}
	for _, embed := range ctx.StringSlice("embed") {
		inputs = append(inputs, feeds.BlockInput{Type: "embed", Url: embed, Title: ctx.String("title")})
	}
	return inputs
}

func promptBlocks() ([]feeds.BlockInput, error) {
	inputs := []feeds.BlockInput{}
	for {
		kind, err := prompt.New().Ask("Block type (text, rich, image, embed, empty to finish):").Input("")
		if err != nil {
			return nil, err
		}

		kind = strings.ToLower(strings.TrimSpace(kind))
		switch kind {
		case "":
			return inputs, nil
		case "text", "rich":
			text, err := prompt.New().Ask("Text:").Input("")
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, feeds.BlockInput{Type: "text", Text: text, Rich: kind == "rich"})
		case "image":
			src, err := prompt.New().Ask("Image URL:").Input("/assets/images/")
			if err != nil {
				return nil, err
			}
			alt, err := prompt.New().Ask("Alt text:").Input("")
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, feeds.BlockInput{Type: "image", Url: src, Alt: alt})
		case "embed":
			src, err := prompt.New().Ask("Embed URL or iframe snippet:").Input("")
			if err != nil {
				return nil, err
			}
			title, err := prompt.New().Ask("Title:").Input("")
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, feeds.BlockInput{Type: "embed", Url: src, Title: title})
		default:
			fmt.Println("Unknown block type", kind)
		}
	}
}
