// Package httpapi exposes the authcore engine over HTTP. Handlers stay
// thin: decode, call the engine, encode the engine's verdict byte-exact.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avirel-labs/authcore"
)

type Handler struct {
	Engine *authcore.Engine
	Log    logrus.FieldLogger
}

func NewHandler(engine *authcore.Engine, log logrus.FieldLogger) *Handler {
	return &Handler{Engine: engine, Log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Service  string `json:"service"`
	Reason   string `json:"reason"`
}

// loginResponse always carries keyFetchToken, null when no keys were
// requested, so clients never have to distinguish absent from null.
type loginResponse struct {
	UID           string  `json:"uid"`
	SessionToken  string  `json:"sessionToken"`
	KeyFetchToken *string `json:"keyFetchToken"`
	Verified      bool    `json:"verified"`
}

// Login handles POST /v1/account/login. Key material is requested through
// the keys=true query parameter, not the body.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid JSON in request body")
	}
	if req.Email == "" || req.Password == "" {
		return writeError(c, http.StatusBadRequest, "Missing parameter in request body")
	}

	service := req.Service
	if service == "" {
		service = c.QueryParam("service")
	}

	result, err := h.Engine.Login(c.Request().Context(), authcore.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Options: authcore.LoginOptions{
			Keys:    c.QueryParam("keys") == "true",
			Service: service,
			Reason:  req.Reason,
		},
	})
	if err != nil {
		return writeEngineError(c, h.Log, err)
	}

	return c.JSON(http.StatusOK, loginResponse{
		UID:           result.UID,
		SessionToken:  result.SessionToken,
		KeyFetchToken: result.KeyFetchToken,
		Verified:      result.Verified,
	})
}

type lockRequest struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// Lock handles POST /v1/account/lock.
func (h *Handler) Lock(c echo.Context) error {
	var req lockRequest
	if err := decodeJSON(c, &req); err != nil || req.UID == "" {
		return writeError(c, http.StatusBadRequest, "Missing parameter in request body")
	}
	if err := h.Engine.LockAccount(c.Request().Context(), req.UID, req.Reason); err != nil {
		return writeEngineError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// Unlock handles POST /v1/account/unlock.
func (h *Handler) Unlock(c echo.Context) error {
	var req lockRequest
	if err := decodeJSON(c, &req); err != nil || req.UID == "" {
		return writeError(c, http.StatusBadRequest, "Missing parameter in request body")
	}
	if err := h.Engine.UnlockAccount(c.Request().Context(), req.UID); err != nil {
		return writeEngineError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// LockStatus handles GET /v1/account/:uid/lock.
func (h *Handler) LockStatus(c echo.Context) error {
	locked, err := h.Engine.IsLocked(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return writeEngineError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"locked": locked})
}

type sessionRequest struct {
	SessionToken string `json:"sessionToken"`
}

// DestroySession handles POST /v1/session/destroy.
func (h *Handler) DestroySession(c echo.Context) error {
	var req sessionRequest
	if err := decodeJSON(c, &req); err != nil || req.SessionToken == "" {
		return writeError(c, http.StatusBadRequest, "Missing parameter in request body")
	}
	if err := h.Engine.DestroySession(c.Request().Context(), req.SessionToken); err != nil {
		return writeEngineError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// SessionStatus handles POST /v1/session/status.
func (h *Handler) SessionStatus(c echo.Context) error {
	var req sessionRequest
	if err := decodeJSON(c, &req); err != nil || req.SessionToken == "" {
		return writeError(c, http.StatusBadRequest, "Missing parameter in request body")
	}
	sess, err := h.Engine.SessionInfo(c.Request().Context(), req.SessionToken)
	if err != nil {
		return writeEngineError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"uid": sess.UID})
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{
		"code":    status,
		"errno":   0,
		"error":   http.StatusText(status),
		"message": message,
	})
}

// writeEngineError serializes a coded engine error in its wire shape. The
// error type carries its own JSON contract, so it goes out as-is.
func writeEngineError(c echo.Context, log logrus.FieldLogger, err error) error {
	var coded *authcore.Error
	if errors.As(err, &coded) {
		return c.JSON(coded.Code, coded)
	}
	if log != nil {
		log.WithError(err).Error("unclassified engine error")
	}
	return writeError(c, http.StatusInternalServerError, "Unspecified error")
}
