package handler

import (
	"errors"
	"net/http"

	"pocket-ledger/internal/syncengine"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

// SyncHandler 负责云端同步接口
type SyncHandler struct {
	Engine *syncengine.Engine
}

func NewSyncHandler(engine *syncengine.Engine) *SyncHandler {
	return &SyncHandler{Engine: engine}
}

// Status 检查本地/云端数据是否存在，前端据此决定是否弹出三选一对话框
func (h *SyncHandler) Status(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	st, err := h.Engine.CheckStatus(c.Request.Context(), user.ID)
	if err != nil {
		h.writeSyncError(c, err)
		return
	}

	util.Success(c, util.Response{
		"status": st,
	})
}

type executeSyncReq struct {
	Strategy string `json:"strategy" binding:"required,oneof=overwrite_remote overwrite_local merge"`
}

// Execute 按指定策略执行一次同步
func (h *SyncHandler) Execute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req executeSyncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	out, err := h.Engine.Execute(c.Request.Context(), user.ID, syncengine.Strategy(req.Strategy))
	if err != nil {
		h.writeSyncError(c, err)
		return
	}

	util.Success(c, util.Response{
		"result": out,
	})
}

// writeSyncError 把同步引擎的哨兵错误映射为响应码
func (h *SyncHandler) writeSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, syncengine.ErrAuthRequired):
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未登录")
	case errors.Is(err, syncengine.ErrRemoteEmpty):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "云端暂无数据")
	case errors.Is(err, syncengine.ErrTransport):
		util.Error(c, http.StatusBadGateway, util.CodeSyncErr, "连接云端失败，请稍后再试")
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeSyncErr, "同步失败，请稍后再试")
	}
}
