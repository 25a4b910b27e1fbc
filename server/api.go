package server

import (
	"encoding/json"
	"errors"

	"sonicfeed/feeds"
	"sonicfeed/models"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type createPostRequest struct {
	Blocks []feeds.BlockInput `json:"blocks"`
}

type stickyRequest struct {
	Sticky         bool `json:"sticky"`
	StickyPosition *int `json:"stickyPosition"`
}

type retentionRequest struct {
	MaxAgeDays json.RawMessage `json:"maxAgeDays"`
}

type retentionResponse struct {
	MaxAgeDays int `json:"maxAgeDays"`
}

func (h *handlers) listPosts(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(h.config.Store.Load(c.UserContext()))
}

func (h *handlers) createPost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request body")
	}

	blocks, err := feeds.BuildBlocks(req.Blocks)
	if errors.Is(err, feeds.ErrInvalidBlock) {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("Post has no content")
	}

	post := feeds.BuildPost(blocks)

	h.editMu.Lock()
	defer h.editMu.Unlock()

	ctx := c.UserContext()
	posts := append(h.config.Store.Load(ctx), post)
	if !h.config.Store.Save(ctx, posts) {
		return c.Status(fiber.StatusInternalServerError).SendString("Could not save post")
	}

	log.WithFields(log.Fields{
		"id":     post.Id,
		"blocks": len(post.Blocks),
	}).Info("Created post")
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *handlers) deletePost(c *fiber.Ctx) error {
	id := c.Params("id")

	h.editMu.Lock()
	defer h.editMu.Unlock()

	ctx := c.UserContext()
	posts := h.config.Store.Load(ctx)
	kept := lo.Reject(posts, func(p models.Post, _ int) bool { return p.Id == id })
	if len(kept) == len(posts) {
		return c.Status(fiber.StatusNotFound).SendString("Post not found")
	}
	if !h.config.Store.Save(ctx, kept) {
		return c.Status(fiber.StatusInternalServerError).SendString("Could not save posts")
	}

	log.WithFields(log.Fields{
		"id": id,
	}).Info("Deleted post")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) setSticky(c *fiber.Ctx) error {
	var req stickyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request body")
	}
	id := c.Params("id")

	h.editMu.Lock()
	defer h.editMu.Unlock()

	ctx := c.UserContext()
	posts := h.config.Store.Load(ctx)
	_, index, found := lo.FindIndexOf(posts, func(p models.Post) bool { return p.Id == id })
	if !found {
		return c.Status(fiber.StatusNotFound).SendString("Post not found")
	}

	posts[index].Sticky = req.Sticky
	posts[index].StickyPosition = nil
	if req.Sticky {
		posts[index].StickyPosition = req.StickyPosition
	}
	if !h.config.Store.Save(ctx, posts) {
		return c.Status(fiber.StatusInternalServerError).SendString("Could not save posts")
	}
	return c.JSON(posts[index])
}

func (h *handlers) getRetention(c *fiber.Ctx) error {
	days := h.config.Store.GetRetentionDays(c.UserContext(), h.config.DefaultRetention)
	return c.JSON(retentionResponse{MaxAgeDays: days})
}

func (h *handlers) setRetention(c *fiber.Ctx) error {
	var req retentionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request body")
	}

	days, ok := models.ParseRetentionValue(req.MaxAgeDays)
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("maxAgeDays must be an integer")
	}
	if !h.config.Store.SetRetentionDays(c.UserContext(), days) {
		return c.Status(fiber.StatusInternalServerError).SendString("Could not save retention")
	}
	return c.JSON(retentionResponse{MaxAgeDays: days})
}
