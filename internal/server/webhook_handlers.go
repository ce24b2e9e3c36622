package server

import (
	"net/url"

	"mfl/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetWebhooks handles GET /api/admin/webhooks
// @Summary List webhook subscriptions
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{webhooks=[]models.WebhookSubscription}
// @Router /admin/webhooks [get]
func (s *Server) GetWebhooks(c *fiber.Ctx) error {
	webhooks, err := s.webhookRepo.List(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"webhooks": webhooks})
}

// CreateWebhook handles POST /api/admin/webhooks
// @Summary Register a webhook subscription
// @Description Register an endpoint to receive facility.published events. Deliveries are signed with the subscription secret.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,url=string,secret=string,active=boolean} true "Subscription"
// @Success 201 {object} models.WebhookSubscription
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/webhooks [post]
func (s *Server) CreateWebhook(c *fiber.Ctx) error {
	var req struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		Secret string `json:"secret"`
		Active *bool  `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" || req.URL == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name and URL are required"))
	}
	if err := validateWebhookURL(req.URL); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	sub := &models.WebhookSubscription{
		Name:   req.Name,
		URL:    req.URL,
		Secret: req.Secret,
		Active: req.Active == nil || *req.Active,
	}
	if err := s.webhookRepo.Create(c.Context(), sub); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// UpdateWebhook handles PUT /api/admin/webhooks/:id
// @Summary Update a webhook subscription
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path integer true "Subscription ID"
// @Param request body object{name=string,url=string,secret=string,active=boolean} true "Fields to update"
// @Success 200 {object} models.WebhookSubscription
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/webhooks/{id} [put]
func (s *Server) UpdateWebhook(c *fiber.Ctx) error {
	subID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name   *string `json:"name"`
		URL    *string `json:"url"`
		Secret *string `json:"secret"`
		Active *bool   `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	subs, err := s.webhookRepo.List(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	var sub *models.WebhookSubscription
	for i := range subs {
		if subs[i].ID == subID {
			sub = &subs[i]
			break
		}
	}
	if sub == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("webhook subscription", subID))
	}

	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.URL != nil {
		if err := validateWebhookURL(*req.URL); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
		sub.URL = *req.URL
	}
	if req.Secret != nil {
		sub.Secret = *req.Secret
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}

	if err := s.webhookRepo.Update(c.Context(), sub); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(sub)
}

// DeleteWebhook handles DELETE /api/admin/webhooks/:id
// @Summary Remove a webhook subscription
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path integer true "Subscription ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/webhooks/{id} [delete]
func (s *Server) DeleteWebhook(c *fiber.Ctx) error {
	subID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.webhookRepo.Delete(c.Context(), subID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func validateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return models.NewValidationError("URL must be a valid http or https endpoint")
	}
	return nil
}
