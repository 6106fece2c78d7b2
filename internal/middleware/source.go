package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Headers the extension sends to identify itself. These are an
// unauthenticated, spoofable signal; they gate obviously foreign
// traffic, nothing more.
const (
	HeaderExtensionID      = "X-Extension-Id"
	HeaderExtensionVersion = "X-Extension-Version"
)

// NewSourceCheck returns a middleware that rejects requests lacking the
// extension identification headers, before any body parsing or
// validation happens. Rejections here never record a rate-limit
// penalty.
func NewSourceCheck() fiber.Handler {
	return func(c fiber.Ctx) error {
		if strings.TrimSpace(c.Get(HeaderExtensionID)) == "" {
			return ErrorResponse(c, fiber.StatusForbidden, "INVALID_SOURCE", "Missing client identification")
		}
		if !ValidClientVersion(c.Get(HeaderExtensionVersion)) {
			return ErrorResponse(c, fiber.StatusForbidden, "INVALID_SOURCE", "Unsupported client version")
		}
		return c.Next()
	}
}

// ValidClientVersion accepts a version string whose leading numeric
// component parses to 1 or greater ("1", "1.4.2", "2.0-beta").
func ValidClientVersion(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	head, _, _ := strings.Cut(v, ".")
	head, _, _ = strings.Cut(head, "-")
	major, err := strconv.Atoi(head)
	return err == nil && major >= 1
}
