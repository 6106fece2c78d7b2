package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/orthrauku-dev/yt-sus/internal/middleware"
	"github.com/orthrauku-dev/yt-sus/internal/model"
	"github.com/orthrauku-dev/yt-sus/internal/ratelimit"
	"github.com/orthrauku-dev/yt-sus/internal/service"
	"github.com/orthrauku-dev/yt-sus/internal/validate"
)

type VoteHandler struct {
	svc     *service.VoteService
	limiter *ratelimit.Limiter
}

func NewVoteHandler(svc *service.VoteService, limiter *ratelimit.Limiter) *VoteHandler {
	return &VoteHandler{svc: svc, limiter: limiter}
}

// Submit handles POST /api/votes.
//
// Pipeline order matters: validation failures record a penalty marker
// against the caller, the rate limiter is consulted before any storage
// work, and the limiter's vote record is written only after the store
// confirms the commit (a failed or timed-out write must leave the
// client free to retry).
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	// The rate-limit identity. Spoofable in development transports;
	// that is the accepted trust model, not something to paper over.
	addr := c.IP()
	now := time.Now()

	channelID, errMsg := validate.ChannelID(req.ChannelID)
	if errMsg != "" {
		h.limiter.RecordValidationFailure(addr, errMsg, now)
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	name := req.ChannelName
	if name == "" {
		name = model.UnknownName
	} else if _, errMsg := validate.ChannelName(name); errMsg != "" {
		h.limiter.RecordValidationFailure(addr, errMsg, now)
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	name = validate.Sanitize(name, validate.MaxChannelNameLen)

	if denial := h.limiter.Check(addr, channelID, now); denial != nil {
		Metrics.RateLimitDenials.WithLabelValues(denial.Reason).Inc()
		return middleware.ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMITED", denial.Message)
	}

	votes, err := h.svc.Apply(c.Context(), channelID, name, now)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record vote")
	}

	h.limiter.RecordVote(addr, channelID, now)
	Metrics.VotesTotal.Inc()

	return c.JSON(model.VoteResponse{
		Success:   true,
		ChannelID: channelID,
		Votes:     votes,
	})
}
