package handler

import (
	"net/http"
	"strconv"

	"pocket-ledger/internal/models"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListLogs 返回当前用户的操作日志（倒序分页）
func ListLogs(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page <= 0 {
			page = 1
		}
		size, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
		if size <= 0 || size > 200 {
			size = 50
		}

		var total int64
		if err := db.Model(&models.AuditLog{}).
			Where("user_id = ?", user.ID).
			Count(&total).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
			return
		}

		var logs []models.AuditLog
		if err := db.Where("user_id = ?", user.ID).
			Order("id DESC").
			Limit(size).
			Offset((page - 1) * size).
			Find(&logs).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
			return
		}

		util.Success(c, util.Response{
			"items": logs,
			"total": total,
			"page":  page,
			"size":  size,
		})
	}
}
