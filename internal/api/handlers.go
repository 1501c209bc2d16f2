package api

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/audit"
	"github.com/biasbench/biasbench/internal/model"
)

// Handler holds the route handlers.
type Handler struct {
	svc    AuditService
	models []adapter.Spec
	logger *slog.Logger
}

type auditRequest struct {
	Prompt string   `json:"prompt"`
	Models []string `json:"models"`
}

type auditData struct {
	Responses model.ResponseSet `json:"responses"`
	Verdict   model.Verdict     `json:"verdict"`
}

type auditResponse struct {
	Status        string           `json:"status"`
	Data          auditData        `json:"data"`
	AuditID       int64            `json:"audit_id"`
	IgnoredModels []model.ModelKey `json:"ignored_models,omitempty"`
}

type modelsResponse struct {
	Models        []adapter.Spec   `json:"models"`
	DefaultModels []model.ModelKey `json:"default_models"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// RunAudit handles POST /api/audit.
func (h *Handler) RunAudit(c *fiber.Ctx) error {
	var req auditRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := audit.ValidatePrompt(req.Prompt); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	out, err := h.svc.RunAudit(c.UserContext(), req.Prompt, model.ParseModelKeys(req.Models))
	if err != nil {
		if errors.Is(err, audit.ErrInvalidPrompt) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Audit failed: "+err.Error())
	}

	if len(out.Result.Ignored) > 0 {
		h.logger.Warn("ignored unknown models", "models", out.Result.Ignored, "audit_id", out.ID)
	}

	return c.JSON(auditResponse{
		Status: "success",
		Data: auditData{
			Responses: out.Result.Responses,
			Verdict:   out.Result.Verdict,
		},
		AuditID:       out.ID,
		IgnoredModels: out.Result.Ignored,
	})
}

// History handles GET /api/history.
func (h *Handler) History(c *fiber.Ctx) error {
	records, err := h.svc.History(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "History failed: "+err.Error())
	}
	if records == nil {
		records = []model.AuditRecord{}
	}
	return c.JSON(records)
}

// Models handles GET /api/models.
func (h *Handler) Models(c *fiber.Ctx) error {
	return c.JSON(modelsResponse{
		Models:        h.models,
		DefaultModels: h.svc.DefaultModels(),
	})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
