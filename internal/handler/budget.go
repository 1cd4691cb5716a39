package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pocket-ledger/internal/category"
	"pocket-ledger/internal/models"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BudgetHandler 负责分类月度预算
type BudgetHandler struct {
	DB *gorm.DB
}

func NewBudgetHandler(db *gorm.DB) *BudgetHandler {
	return &BudgetHandler{DB: db}
}

type budgetReq struct {
	Category  string `json:"category" binding:"required,max=64"`
	LimitYuan string `json:"limit" binding:"required"`
}

// SetBudget 设置某个分类的月度预算（存在则更新）
func (h *BudgetHandler) SetBudget(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req budgetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	limitCent, err := convertYuanToCent(req.LimitYuan)
	if err != nil || limitCent <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}

	catKey := category.StableKey(strings.TrimSpace(req.Category))
	if catKey == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择类别")
		return
	}

	var budget models.Budget
	err = h.DB.Where("user_id = ? AND category_key = ?", user.ID, catKey).First(&budget).Error
	switch {
	case err == nil:
		budget.LimitCent = limitCent
		err = h.DB.Save(&budget).Error
	case err == gorm.ErrRecordNotFound:
		budget = models.Budget{UserID: user.ID, CategoryKey: catKey, LimitCent: limitCent}
		err = h.DB.Create(&budget).Error
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"message": "已保存",
	})
}

// DeleteBudget 删除某个分类的预算
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	result := h.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Budget{})
	if result.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}
	if result.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "预算不存在")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}

// BudgetStatus 返回本月（或 ?month=YYYY-MM 指定月份）各分类预算使用情况。
// 标记为“不计入预算”的账目不参与统计。
func (h *BudgetHandler) BudgetStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if m := c.Query("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "月份格式错误，应为 YYYY-MM")
			return
		}
		monthStart = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	monthEnd := monthStart.AddDate(0, 1, 0)

	var budgets []models.Budget
	if err := h.DB.Where("user_id = ?", user.ID).Order("id ASC").Find(&budgets).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	type budgetStatus struct {
		ID           uint   `json:"id"`
		CategoryKey  string `json:"category_key"`
		CategoryName string `json:"category"`
		LimitCent    int64  `json:"limit_cent"`
		SpentCent    int64  `json:"spent_cent"`
		Exceeded     bool   `json:"exceeded"`
	}

	items := make([]budgetStatus, 0, len(budgets))
	for i := range budgets {
		b := &budgets[i]

		var spent int64
		err := h.DB.Model(&models.LedgerEntry{}).
			Where("user_id = ? AND category_key = ? AND amount_cent < 0", user.ID, b.CategoryKey).
			Where("occurred_at >= ? AND occurred_at < ?", monthStart, monthEnd).
			Where("excluded_from_budget = ?", false).
			Select("COALESCE(SUM(-amount_cent), 0)").
			Scan(&spent).Error
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "统计失败")
			return
		}

		items = append(items, budgetStatus{
			ID:           b.ID,
			CategoryKey:  b.CategoryKey,
			CategoryName: category.DisplayName(b.CategoryKey),
			LimitCent:    b.LimitCent,
			SpentCent:    spent,
			Exceeded:     spent > b.LimitCent,
		})
	}

	util.Success(c, util.Response{
		"month": monthStart.Format("2006-01"),
		"items": items,
	})
}
