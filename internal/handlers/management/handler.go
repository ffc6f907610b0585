// Package management exposes the admin surface: login, account CRUD by
// token id, rotation config, signature cache control.
package management

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"antigravity2api-go/internal/account"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/sigcache"
	"antigravity2api-go/internal/tokenstore"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	sessionCookie = "mgmt_session"
	sessionTTL    = 24 * time.Hour
)

// Handler owns both account pools plus the shared caches.
type Handler struct {
	Cfg         *config.Config
	Antigravity *account.Manager
	CLI         *account.Manager
	Signatures  *sigcache.Cache

	sessionMu sync.Mutex
	sessions  map[string]time.Time
}

func New(cfg *config.Config, antigravity, cli *account.Manager, sigs *sigcache.Cache) *Handler {
	return &Handler{
		Cfg:         cfg,
		Antigravity: antigravity,
		CLI:         cli,
		Signatures:  sigs,
		sessions:    make(map[string]time.Time),
	}
}

func (h *Handler) pool(c *gin.Context) *account.Manager {
	switch c.Param("pool") {
	case "cli":
		return h.CLI
	case "antigravity", "":
		return h.Antigravity
	default:
		return nil
	}
}

// Login issues a session cookie after password verification.
func (h *Handler) Login(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "password is required"})
		return
	}
	if h.Cfg.AdminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(body.Password), []byte(h.Cfg.AdminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid password"})
		return
	}

	var b [32]byte
	_, _ = rand.Read(b[:])
	token := hex.EncodeToString(b[:])

	h.sessionMu.Lock()
	h.sessions[token] = time.Now().Add(sessionTTL)
	for t, exp := range h.sessions {
		if time.Now().After(exp) {
			delete(h.sessions, t)
		}
	}
	h.sessionMu.Unlock()

	c.SetCookie(sessionCookie, token, int(sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// RequireSession gates management routes behind the login cookie (or the
// same token as a bearer header, for API use).
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookie)
		if token == "" {
			auth := c.GetHeader("Authorization")
			if len(auth) > 7 && auth[:7] == "Bearer " {
				token = auth[7:]
			}
		}
		if token == "" || !h.sessionValid(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "not authenticated"})
			return
		}
		c.Next()
	}
}

func (h *Handler) sessionValid(token string) bool {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	exp, ok := h.sessions[token]
	if !ok || time.Now().After(exp) {
		delete(h.sessions, token)
		return false
	}
	return true
}

// requirePassword re-verifies the admin password for sensitive operations.
func (h *Handler) requirePassword(c *gin.Context) bool {
	password := c.GetHeader("X-Admin-Password")
	if password == "" {
		password = c.Query("password")
	}
	if h.Cfg.AdminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(password), []byte(h.Cfg.AdminPassword)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "password verification required"})
		return false
	}
	return true
}

// ListTokens handles GET /api/management/:pool/tokens.
func (h *Handler) ListTokens(c *gin.Context) {
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	infos, err := mgr.ListTokens()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": infos})
}

// AddToken handles POST /api/management/:pool/tokens.
func (h *Handler) AddToken(c *gin.Context) {
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	var acct tokenstore.Account
	if err := c.ShouldBindJSON(&acct); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid account payload"})
		return
	}
	tokenID, err := mgr.AddToken(&acct)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokenId": tokenID})
}

// UpdateToken handles PATCH /api/management/:pool/tokens/:tokenId.
func (h *Handler) UpdateToken(c *gin.Context) {
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	var upd account.TokenUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid update payload"})
		return
	}
	if err := mgr.UpdateTokenByID(c.Param("tokenId"), upd); err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteToken handles DELETE /api/management/:pool/tokens/:tokenId.
func (h *Handler) DeleteToken(c *gin.Context) {
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	if err := mgr.DeleteTokenByID(c.Param("tokenId")); err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RefreshToken handles POST /api/management/:pool/tokens/:tokenId/refresh.
func (h *Handler) RefreshToken(c *gin.Context) {
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	if err := mgr.RefreshTokenByID(c.Request.Context(), c.Param("tokenId")); err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// FetchProject handles POST /api/management/:pool/tokens/:tokenId/project.
func (h *Handler) FetchProject(c *gin.Context) {
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	projectID, err := mgr.FetchProjectIDByID(c.Request.Context(), c.Param("tokenId"))
	if err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projectId": projectID})
}

// ExportTokens handles GET /api/management/:pool/export. Secrets leave
// the store here, so the admin password is re-verified.
func (h *Handler) ExportTokens(c *gin.Context) {
	if !h.requirePassword(c) {
		return
	}
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	accounts, err := mgr.ExportTokens()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "accounts": accounts})
}

// ImportTokens handles POST /api/management/:pool/import.
func (h *Handler) ImportTokens(c *gin.Context) {
	if !h.requirePassword(c) {
		return
	}
	mgr := h.pool(c)
	if mgr == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown pool"})
		return
	}
	var accounts []*tokenstore.Account
	if err := c.ShouldBindJSON(&accounts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid accounts payload"})
		return
	}
	added, err := mgr.ImportTokens(accounts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "added": added})
}

// UpdateRotation handles PUT /api/management/rotation.
func (h *Handler) UpdateRotation(c *gin.Context) {
	var body struct {
		Strategy     string `json:"strategy"`
		RequestCount int    `json:"requestCount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid rotation payload"})
		return
	}
	strategy := account.ParseStrategy(body.Strategy)
	h.Antigravity.UpdateRotationConfig(strategy, body.RequestCount)
	h.CLI.UpdateRotationConfig(strategy, body.RequestCount)
	log.Infof("rotation strategy switched to %s", strategy)
	c.JSON(http.StatusOK, gin.H{"success": true, "strategy": string(strategy)})
}

// ClearSignatures handles POST /api/management/signatures/clear.
func (h *Handler) ClearSignatures(c *gin.Context) {
	h.Signatures.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func writeTokenError(c *gin.Context, err error) {
	if errors.Is(err, account.ErrTokenNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "token not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
}
