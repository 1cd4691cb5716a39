package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pocket-ledger/internal/category"
	"pocket-ledger/internal/models"
	"pocket-ledger/internal/scheduler"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RuleHandler 负责周期记账规则
type RuleHandler struct {
	DB    *gorm.DB
	Sched *scheduler.Scheduler
}

func NewRuleHandler(db *gorm.DB, sched *scheduler.Scheduler) *RuleHandler {
	return &RuleHandler{DB: db, Sched: sched}
}

type ruleReq struct {
	Kind            string `json:"kind" binding:"required"`
	AmountYuan      string `json:"amount" binding:"required"`
	FeeYuan         string `json:"fee"`
	FeeMode         string `json:"fee_mode" binding:"omitempty,oneof=fee_from_destination fee_added_to_source"`
	Category        string `json:"category" binding:"max=64"`
	AccountID       uint   `json:"account_id" binding:"required"`
	TargetAccountID uint   `json:"target_account_id"`

	Frequency string `json:"frequency" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD

	EndMode        string `json:"end_mode" binding:"omitempty,oneof=never by_date by_count"`
	EndDate        string `json:"end_date"` // by_date
	RemainingCount int    `json:"remaining_count"`

	Note              string `json:"note" binding:"max=255"`
	ExcludeFromStats  bool   `json:"exclude_from_stats"`
	ExcludeFromBudget bool   `json:"exclude_from_budget"`
}

// buildRule 校验请求并填充规则字段（新建和修改共用）
func (h *RuleHandler) buildRule(c *gin.Context, userID uint, req *ruleReq, rule *models.RecurringRule) bool {
	if err := util.ValidateRuleKind(req.Kind); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "规则类型无效")
		return false
	}
	if err := util.ValidateFrequency(req.Frequency); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "频率无效")
		return false
	}

	amountCent, err := convertYuanToCent(req.AmountYuan)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return false
	}
	if err := util.ValidateAmountCent(amountCent); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return false
	}

	var feeCent int64
	if req.FeeYuan != "" {
		if feeCent, err = convertYuanToCent(req.FeeYuan); err != nil || feeCent < 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "手续费无效")
			return false
		}
	}

	if err := util.ValidateDate(req.StartDate); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "开始日期格式错误，应为 YYYY-MM-DD")
		return false
	}
	startedAt, _ := time.Parse("2006-01-02", req.StartDate)

	// 账户必须属于当前用户
	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", req.AccountID, userID).
		First(&account).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "账户不存在")
		return false
	}

	if req.Kind == models.RuleTransfer {
		if req.TargetAccountID == 0 || req.TargetAccountID == req.AccountID {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择转入账户")
			return false
		}
		var target models.Account
		if err := h.DB.Where("id = ? AND user_id = ?", req.TargetAccountID, userID).
			First(&target).Error; err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "转入账户不存在")
			return false
		}
	}

	catKey := category.StableKey(strings.TrimSpace(req.Category))
	if req.Kind != models.RuleTransfer {
		if err := util.ValidateCategoryKey(catKey); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择类别")
			return false
		}
	} else if catKey == "" {
		catKey = category.KeyTransferOut
	}

	endMode := req.EndMode
	if endMode == "" {
		endMode = models.EndNever
	}

	rule.Kind = req.Kind
	rule.AmountCent = amountCent
	rule.FeeCent = feeCent
	rule.FeeMode = req.FeeMode
	rule.CategoryKey = catKey
	rule.AccountID = req.AccountID
	rule.TargetAccountID = req.TargetAccountID
	rule.Frequency = req.Frequency
	rule.StartedAt = startedAt
	rule.EndMode = endMode
	rule.Note = req.Note
	rule.ExcludeFromStats = req.ExcludeFromStats
	rule.ExcludeFromBudget = req.ExcludeFromBudget

	rule.EndAt = nil
	rule.RemainingCount = nil
	switch endMode {
	case models.EndByDate:
		if err := util.ValidateDate(req.EndDate); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "结束日期格式错误，应为 YYYY-MM-DD")
			return false
		}
		endAt, _ := time.Parse("2006-01-02", req.EndDate)
		if endAt.Before(startedAt) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "结束日期不能早于开始日期")
			return false
		}
		rule.EndAt = &endAt
	case models.EndByCount:
		if req.RemainingCount <= 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "剩余次数必须大于 0")
			return false
		}
		remaining := req.RemainingCount
		rule.RemainingCount = &remaining
	}

	return true
}

// CreateRule 新建周期记账规则，首次执行时间为开始日期
func (h *RuleHandler) CreateRule(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	rule := models.RecurringRule{UserID: user.ID}
	if !h.buildRule(c, user.ID, &req, &rule) {
		return
	}
	rule.NextExecutionAt = rule.StartedAt

	if err := h.DB.Create(&rule).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"rule": rule,
	})
}

// UpdateRule 修改规则。不回拨 NextExecutionAt，除非开始日期晚于它。
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var rule models.RecurringRule
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&rule).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "规则不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if !h.buildRule(c, user.ID, &req, &rule) {
		return
	}
	// NextExecutionAt 只前进：开始日期推后时跟着推后，否则保持调度进度
	if rule.StartedAt.After(rule.NextExecutionAt) {
		rule.NextExecutionAt = rule.StartedAt
	}

	if err := h.DB.Save(&rule).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"rule": rule,
	})
}

// ListRules 返回当前用户的全部规则
func (h *RuleHandler) ListRules(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var rules []models.RecurringRule
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("next_execution_at ASC, id ASC").
		Find(&rules).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	type ruleResp struct {
		models.RecurringRule
		CategoryName string `json:"category"`
		Exhausted    bool   `json:"exhausted"`
	}
	items := make([]ruleResp, 0, len(rules))
	for i := range rules {
		items = append(items, ruleResp{
			RecurringRule: rules[i],
			CategoryName:  category.DisplayName(rules[i].CategoryKey),
			Exhausted:     rules[i].Exhausted(),
		})
	}

	util.Success(c, util.Response{
		"items": items,
	})
}

// DeleteRule 删除规则（已生成的账目保留）
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	result := h.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.RecurringRule{})
	if result.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}
	if result.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "规则不存在")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}

// RunNow 立即执行一轮到期规则（等价于调度器定时触发一次）
func (h *RuleHandler) RunNow(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	executed, err := h.Sched.RunDueRules(c.Request.Context(), time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "部分规则执行失败")
		return
	}

	util.Success(c, util.Response{
		"executed": executed,
	})
}
