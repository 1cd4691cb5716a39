package handler

import (
	"net/http"
	"strconv"
	"strings"

	"pocket-ledger/internal/models"
	"pocket-ledger/internal/store"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler 负责账户相关接口
type AccountHandler struct {
	DB    *gorm.DB
	Store *store.Store
}

func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{DB: db, Store: store.New(db)}
}

type accountReq struct {
	Name               string `json:"name" binding:"required,max=64"`
	Type               string `json:"type" binding:"required,max=32"`
	Currency           string `json:"currency" binding:"max=8"`
	InitialBalanceYuan string `json:"initial_balance"`
	IsLiability        bool   `json:"is_liability"`
}

type accountResp struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
	InitialCent int64  `json:"initial_balance_cent"`
	BalanceCent int64  `json:"balance_cent"`
	Balance     string `json:"balance"`
	IsLiability bool   `json:"is_liability"`
	EntryCount  int64  `json:"entry_count"`
}

// ListAccounts 返回当前用户的所有账户及其余额
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var accounts []models.Account
	if err := h.DB.Where("user_id = ?", user.ID).Order("id ASC").Find(&accounts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	items := make([]accountResp, 0, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		bal, err := h.Store.AccountBalance(c.Request.Context(), user.ID, a.ID)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "统计余额失败")
			return
		}
		var count int64
		_ = h.DB.Model(&models.LedgerEntry{}).
			Where("user_id = ? AND account_id = ?", user.ID, a.ID).
			Count(&count).Error

		items = append(items, accountResp{
			ID:          a.ID,
			Name:        a.Name,
			Type:        a.Type,
			Currency:    a.Currency,
			InitialCent: a.InitialBalanceCent,
			BalanceCent: bal,
			Balance:     formatCentToYuan(bal),
			IsLiability: a.IsLiability,
			EntryCount:  count,
		})
	}

	util.Success(c, util.Response{
		"items": items,
	})
}

// CreateAccount 新建账户
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req accountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "账户名称不能为空")
		return
	}

	// 同名账户（不区分大小写）视为重复
	var count int64
	if err := h.DB.Model(&models.Account{}).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", user.ID, req.Name).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "已存在同名账户")
		return
	}

	var initialCent int64
	if req.InitialBalanceYuan != "" {
		var err error
		if initialCent, err = convertYuanToCent(req.InitialBalanceYuan); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "初始余额无效")
			return
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "CNY"
	}

	account := models.Account{
		UserID:             user.ID,
		Name:               req.Name,
		Type:               req.Type,
		Currency:           currency,
		InitialBalanceCent: initialCent,
		IsLiability:        req.IsLiability,
	}
	if err := h.DB.Create(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"account": gin.H{
			"id":   account.ID,
			"name": account.Name,
		},
	})
}

// UpdateAccount 修改账户信息
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var req accountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "账户不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "账户名称不能为空")
		return
	}

	var count int64
	if err := h.DB.Model(&models.Account{}).
		Where("user_id = ? AND LOWER(name) = LOWER(?) AND id <> ?", user.ID, req.Name, account.ID).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "已存在同名账户")
		return
	}

	account.Name = req.Name
	account.Type = req.Type
	account.IsLiability = req.IsLiability
	if req.Currency != "" {
		account.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	}
	if req.InitialBalanceYuan != "" {
		if cent, err := convertYuanToCent(req.InitialBalanceYuan); err == nil {
			account.InitialBalanceCent = cent
		}
	}

	if err := h.DB.Save(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"message": "已保存",
	})
}

// DeleteAccount 删除账户。有账目引用的账户不允许删除。
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "账户不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	var count int64
	if err := h.DB.Model(&models.LedgerEntry{}).
		Where("user_id = ? AND account_id = ?", user.ID, account.ID).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "该账户下仍有账目，无法删除")
		return
	}

	if err := h.DB.Delete(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}
