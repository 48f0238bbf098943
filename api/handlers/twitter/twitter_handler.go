package twitter

import (
	"net/http"
	"time"

	"gacetachat/internal/common"
	"gacetachat/internal/social"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const stateTTL = 10 * time.Minute

// TwitterHandler Twitter OAuth2 授权 Handler
// state 随机生成并存入 Redis，回调时校验防 CSRF
type TwitterHandler struct {
	client *social.TwitterClient
	rdb    *redis.Client
}

// NewTwitterHandler 创建 TwitterHandler 实例
func NewTwitterHandler(client *social.TwitterClient, rdb *redis.Client) *TwitterHandler {
	return &TwitterHandler{client: client, rdb: rdb}
}

// Authorize 跳转到 Twitter 授权页
// GET /api/twitter/authorize
func (h *TwitterHandler) Authorize(c *gin.Context) {
	state := uuid.New().String()
	if err := h.rdb.Set(c.Request.Context(), "twitter:state:"+state, "1", stateTTL).Err(); err != nil {
		common.ResponseServerError(c, "保存授权状态失败: "+err.Error())
		return
	}
	c.Redirect(http.StatusFound, h.client.AuthorizeURL(state))
}

// Callback 处理 Twitter 授权回调
// GET /api/twitter/callback?state=...&code=...
func (h *TwitterHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		common.ResponseBadRequest(c, "缺少 state 或 code 参数")
		return
	}

	deleted, err := h.rdb.Del(c.Request.Context(), "twitter:state:"+state).Result()
	if err != nil {
		common.ResponseServerError(c, "校验授权状态失败: "+err.Error())
		return
	}
	if deleted == 0 {
		common.ResponseError(c, common.CodeTwitterAuthFailed, "授权状态无效或已过期")
		return
	}

	if err := h.client.ExchangeCode(c.Request.Context(), code); err != nil {
		common.ResponseError(c, common.CodeTwitterAuthFailed, err.Error())
		return
	}
	common.ResponseSuccessMessage(c, "Twitter 授权成功", nil)
}
