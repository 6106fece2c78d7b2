package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/orthrauku-dev/yt-sus/internal/middleware"
	"github.com/orthrauku-dev/yt-sus/internal/service"
	"github.com/orthrauku-dev/yt-sus/internal/validate"
)

type ChannelHandler struct {
	svc *service.ChannelService
}

func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{svc: svc}
}

// ListFlagged handles GET /api/channels — the flagged-channel map the
// extension polls for its local lookup table.
func (h *ChannelHandler) ListFlagged(c fiber.Ctx) error {
	channels, err := h.svc.ListFlagged(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list flagged channels")
	}

	c.Set("Cache-Control", "public, max-age=300")
	return c.JSON(channels)
}

// Check handles GET /api/channels/check?channelId=... — single-channel
// flag check. The ID travels as a query parameter because the legacy
// /c/ and /user/ forms contain slashes.
func (h *ChannelHandler) Check(c fiber.Ctx) error {
	channelID, errMsg := validate.ChannelID(c.Query("channelId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Check(c.Context(), channelID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check channel")
	}

	return c.JSON(resp)
}
