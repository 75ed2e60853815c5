package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ady24s/Cloud9/internal/auth"
	"github.com/ady24s/Cloud9/internal/credentials"
	"github.com/ady24s/Cloud9/internal/store"
	"github.com/ady24s/Cloud9/pkg/types"
)

// CredentialHandler handles cloud credential endpoints. Secrets enter
// here in plaintext over TLS and leave the handler only as ciphertext;
// list responses never echo them back.
type CredentialHandler struct {
	svc *credentials.Service
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(svc *credentials.Service) *CredentialHandler {
	return &CredentialHandler{svc: svc}
}

// UpsertCredentialRequest is the body for connecting a cloud account
type UpsertCredentialRequest struct {
	Provider  string `json:"provider" validate:"required,oneof=aws azure gcp"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	ExtraJSON string `json:"extra_json"`
}

// Upsert stores (or replaces) the caller's credential for one provider
// POST /api/v1/credentials
func (h *CredentialHandler) Upsert(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req UpsertCredentialRequest
	if err := c.Bind(&req); err != nil {
		return ErrorBadRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	cred, verified, err := h.svc.Upsert(c.Request().Context(), userID, credentials.UpsertInput{
		Provider:  types.Provider(req.Provider),
		AccessKey: req.AccessKey,
		SecretKey: req.SecretKey,
		ExtraJSON: req.ExtraJSON,
	})
	if err != nil {
		return ErrorInternal(c, "failed to store credential")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"credential": cred,
		"verified":   verified,
	})
}

// List returns the caller's connected providers
// GET /api/v1/credentials
func (h *CredentialHandler) List(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	creds, err := h.svc.List(c.Request().Context(), userID)
	if err != nil {
		return ErrorInternal(c, "failed to list credentials")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"credentials": creds,
		"total":       len(creds),
	})
}

// Revoke deletes the caller's credential for one provider
// DELETE /api/v1/credentials/:provider
func (h *CredentialHandler) Revoke(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	provider := types.Provider(c.Param("provider"))
	if !provider.Valid() {
		return ErrorBadRequest(c, "unknown provider")
	}

	if err := h.svc.Revoke(c.Request().Context(), userID, provider); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrorNotFound(c, "no credential for that provider")
		}
		return ErrorInternal(c, "failed to revoke credential")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "credential revoked",
	})
}
