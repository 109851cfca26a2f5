package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/config"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/service"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints. Verifier is
// nil when external identity sign-in is not configured.
type AuthHandler struct {
	Cfg      config.Config
	Members  *service.Members
	Verifier utils.IdentityVerifier
}

func NewAuthHandler(cfg config.Config, members *service.Members, verifier utils.IdentityVerifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Members: members, Verifier: verifier}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type externalLoginReq struct {
	IDToken string `json:"id_token"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type memberPart struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}
type authResp struct {
	Member  memberPart `json:"member"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func (h *AuthHandler) issuePair(c echo.Context, m model.Member, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, m.ID, string(m.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Members.StoreRefresh(c.Request().Context(), m.ID, refresh.Raw); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		Member:  memberPart{ID: m.ID, Name: m.Name, Surname: m.Surname, Email: m.Email, Role: string(m.Role)},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	m, err := h.Members.AuthenticateCredential(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if apperror.IsKind(err, apperror.Unauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, err)
	}
	return h.issuePair(c, m, http.StatusOK)
}

// LoginExternal signs a member in through a provider-issued ID token,
// provisioning the account on first sight.
func (h *AuthHandler) LoginExternal(c echo.Context) error {
	if h.Verifier == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "external sign-in not configured"})
	}
	var req externalLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.IDToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id_token required"})
	}
	m, err := h.Members.AuthenticateExternal(c.Request().Context(), h.Verifier, req.IDToken)
	if err != nil {
		if apperror.IsKind(err, apperror.Unauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "identity token rejected"})
		}
		return fail(c, err)
	}
	return h.issuePair(c, m, http.StatusOK)
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	m, err := h.Members.ValidateRefresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if apperror.IsKind(err, apperror.Unauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return fail(c, err)
	}
	return h.issuePair(c, m, http.StatusOK)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	if err := h.Members.RevokeRefresh(c.Request().Context(), req.RefreshToken); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated member's directory row.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	v, err := h.Members.Get(c.Request().Context(), strconv.FormatUint(id, 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, memberViewResp(v))
}
