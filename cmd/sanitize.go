/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"sonicfeed/content"

	"github.com/urfave/cli/v2"
)

func sanitizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "sanitize",
		Usage:     "Sanitize rich text",
		ArgsUsage: "[markup]",
		Description: `Prints the sanitized form of the given markup, or of stdin when no
		argument is given. This is the markup a rich text block is stored with.`,
		Action: func(ctx *cli.Context) error {
			raw := strings.Join(ctx.Args().Slice(), " ")
			if ctx.NArg() == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				raw = string(data)
			}
			fmt.Println(content.SanitizeRichText(raw))
			return nil
		},
	}
}
