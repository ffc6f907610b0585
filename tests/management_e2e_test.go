package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"antigravity2api-go/internal/account"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/handlers/management"
	"antigravity2api-go/internal/sigcache"
	"antigravity2api-go/internal/tokenstore"
	"antigravity2api-go/internal/upstream"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newMgmtRouter(t *testing.T) (*gin.Engine, *account.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "accounts.json"), "")
	require.NoError(t, store.Save([]*tokenstore.Account{e2eAccount("0"), e2eAccount("1")}))

	anti := account.NewManager(account.Options{Variant: upstream.Antigravity(), Store: store})
	require.NoError(t, anti.Init(context.Background()))
	cliStore := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "geminicli_accounts.json"), "")
	cli := account.NewManager(account.Options{Variant: upstream.GeminiCLI(), Store: cliStore})
	require.NoError(t, cli.Init(context.Background()))

	cfg := config.Defaults()
	cfg.AdminPassword = "hunter2"
	h := management.New(cfg, anti, cli, sigcache.New(sigcache.Policy{CacheAll: true}, time.Hour))

	r := gin.New()
	api := r.Group("/api/management")
	api.POST("/login", h.Login)

	authed := api.Group("", h.RequireSession())
	authed.PUT("/rotation", h.UpdateRotation)
	authed.POST("/signatures/clear", h.ClearSignatures)

	pool := authed.Group("/:pool")
	pool.GET("/tokens", h.ListTokens)
	pool.GET("/export", h.ExportTokens)
	pool.PATCH("/tokens/:tokenId", h.UpdateToken)
	return r, anti
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	raw, _ := json.Marshal(map[string]string{"password": "hunter2"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/management/login", bytes.NewReader(raw))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	token := gjson.Parse(w.Body.String()).Get("token").String()
	require.NotEmpty(t, token)
	return token
}

func TestManagement_LoginAndSessionGate(t *testing.T) {
	r, _ := newMgmtRouter(t)

	// 未登录直接打管理接口要 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/management/antigravity/tokens", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// 错密码
	raw, _ := json.Marshal(map[string]string{"password": "wrong"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/management/login", bytes.NewReader(raw))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// 正常登录后 token 作为 Bearer 也能过闸
	token := login(t, r)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/management/antigravity/tokens", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := gjson.Parse(w.Body.String())
	require.True(t, body.Get("success").Bool())
	tokens := body.Get("tokens").Array()
	require.Len(t, tokens, 2)
	// 列表只暴露 token id，不带刷新令牌
	require.NotContains(t, w.Body.String(), "rt-0")
	require.NotEmpty(t, tokens[0].Get("tokenId").String())
}

func TestManagement_UpdateRotation(t *testing.T) {
	r, anti := newMgmtRouter(t)
	token := login(t, r)

	raw, _ := json.Marshal(map[string]any{"strategy": "request_count", "requestCount": 4})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/management/rotation", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	strategy, count := anti.RotationConfig()
	require.Equal(t, account.StrategyRequestCount, strategy)
	require.Equal(t, 4, count)
}

// 导出携带机密，必须再验一次管理密码
func TestManagement_ExportRequiresPassword(t *testing.T) {
	r, _ := newMgmtRouter(t)
	token := login(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/management/antigravity/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/management/antigravity/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Admin-Password", "hunter2")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "rt-0")
}

func TestManagement_UpdateTokenByID(t *testing.T) {
	r, anti := newMgmtRouter(t)
	token := login(t, r)

	tokenID := anti.TokenIDFor("rt-0")
	raw, _ := json.Marshal(map[string]any{"enable": false})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch,
		"/api/management/antigravity/tokens/"+tokenID, bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	infos, err := anti.ListTokens()
	require.NoError(t, err)
	for _, info := range infos {
		if info.TokenID == tokenID {
			require.False(t, info.Enable)
		}
	}

	// 未知 tokenId 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch,
		"/api/management/antigravity/tokens/deadbeef", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
