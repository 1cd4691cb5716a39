package handler

import (
	"net/http"
	"strconv"
	"strings"

	"pocket-ledger/internal/category"
	"pocket-ledger/internal/models"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DebtHandler 负责借入/借出记录相关接口
type DebtHandler struct {
	DB *gorm.DB
}

func NewDebtHandler(db *gorm.DB) *DebtHandler {
	return &DebtHandler{DB: db}
}

type createDebtReq struct {
	Counterparty string `json:"counterparty" binding:"required,max=64"`
	AmountYuan   string `json:"amount" binding:"required"`
	// direction: lend 借出（钱离开账户）/ borrow 借入（钱进入账户）
	Direction string `json:"direction" binding:"required,oneof=lend borrow"`
	AccountID uint   `json:"account_id"` // 可选，关联出入账账户
	Note      string `json:"note" binding:"max=255"`
	Date      string `json:"date"`
}

// CreateDebt 新建一笔借贷记录。
// 关联了账户时同时生成一条账目，双向通过 LinkedDebtID 挂接。
func (h *DebtHandler) CreateDebt(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createDebtReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	principalCent, err := convertYuanToCent(req.AmountYuan)
	if err != nil || principalCent <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}

	if req.AccountID != 0 {
		var account models.Account
		if err := h.DB.Where("id = ? AND user_id = ?", req.AccountID, user.ID).
			First(&account).Error; err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "账户不存在")
			return
		}
	}

	occurredAt := parseOccurredAt(req.Date)

	debt := models.DebtRecord{
		UserID:        user.ID,
		Counterparty:  strings.TrimSpace(req.Counterparty),
		PrincipalCent: principalCent,
		CreatedAt:     occurredAt,
		Note:          req.Note,
	}
	if req.AccountID != 0 {
		accID := req.AccountID
		if req.Direction == "lend" {
			debt.FundedByAccountID = &accID
		} else {
			debt.FundedToAccountID = &accID
		}
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&debt).Error; err != nil {
			return err
		}
		if req.AccountID == 0 {
			return nil
		}

		// 借出记负数（钱出去），借入记正数（钱进来）
		amount := principalCent
		catKey := category.KeyDebtBorrow
		if req.Direction == "lend" {
			amount = -principalCent
			catKey = category.KeyDebtLend
		}

		entry := models.LedgerEntry{
			UserID:       user.ID,
			AccountID:    req.AccountID,
			CategoryKey:  catKey,
			AmountCent:   amount,
			OccurredAt:   occurredAt,
			Note:         req.Note,
			Kind:         models.KindOrdinary,
			LinkedDebtID: debt.ID,
			// 借贷资金往来不计入预算
			ExcludedFromBudget: true,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"debt": debt,
	})
}

type settleDebtReq struct {
	InterestYuan string `json:"interest"`   // 可选利息
	AccountID    uint   `json:"account_id"` // 可选，结清款项出入的账户
	Note         string `json:"note" binding:"max=255"`
	Date         string `json:"date"`
}

// SettleDebt 结清一笔借贷。
// 生成一条 IsSettlement 的新记录（金额方向与原始记录相反），
// 并在原始记录上写入 SettledAt。
func (h *DebtHandler) SettleDebt(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var req settleDebtReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var debt models.DebtRecord
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&debt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "记录不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}
	if debt.IsSettlement {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "结清记录不能再次结清")
		return
	}
	if debt.SettledAt != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "该笔借贷已结清")
		return
	}

	var interestCent int64
	if req.InterestYuan != "" {
		if interestCent, err = convertYuanToCent(req.InterestYuan); err != nil || interestCent < 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "利息无效")
			return
		}
	}

	if req.AccountID != 0 {
		var account models.Account
		if err := h.DB.Where("id = ? AND user_id = ?", req.AccountID, user.ID).
			First(&account).Error; err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "账户不存在")
			return
		}
	}

	settledAt := parseOccurredAt(req.Date)
	// 原始记录是借出（钱离开）则结清时钱回来，反之亦然
	wasLend := debt.FundedByAccountID != nil || debt.FundedToAccountID == nil

	settlement := models.DebtRecord{
		UserID:        user.ID,
		Counterparty:  debt.Counterparty,
		PrincipalCent: debt.PrincipalCent,
		CreatedAt:     settledAt,
		Note:          req.Note,
		IsSettlement:  true,
		InterestCent:  interestCent,
	}
	if req.AccountID != 0 {
		accID := req.AccountID
		if wasLend {
			settlement.FundedToAccountID = &accID
		} else {
			settlement.FundedByAccountID = &accID
		}
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&settlement).Error; err != nil {
			return err
		}

		debt.SettledAt = &settledAt
		if err := tx.Save(&debt).Error; err != nil {
			return err
		}

		if req.AccountID == 0 {
			return nil
		}

		amount := debt.PrincipalCent + interestCent
		if !wasLend {
			amount = -amount
		}
		entry := models.LedgerEntry{
			UserID:             user.ID,
			AccountID:          req.AccountID,
			CategoryKey:        category.KeyDebtSettle,
			AmountCent:         amount,
			OccurredAt:         settledAt,
			Note:               req.Note,
			Kind:               models.KindOrdinary,
			LinkedDebtID:       settlement.ID,
			ExcludedFromBudget: true,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"message":    "已结清",
		"settlement": settlement,
	})
}

// ListDebts 借贷列表，按对方姓名汇总未结清余额
func (h *DebtHandler) ListDebts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var debts []models.DebtRecord
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&debts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	// 未结清汇总：借出为正、借入为负，结清记录抵消
	type counterpartyBalance struct {
		Counterparty string `json:"counterparty"`
		BalanceCent  int64  `json:"balance_cent"`
	}
	balances := make(map[string]int64)
	for i := range debts {
		d := &debts[i]
		wasLend := d.FundedByAccountID != nil || d.FundedToAccountID == nil
		sign := int64(1)
		if !wasLend {
			sign = -1
		}
		if d.IsSettlement {
			sign = -sign
		}
		balances[d.Counterparty] += sign * d.PrincipalCent
	}

	summary := make([]counterpartyBalance, 0, len(balances))
	for name, bal := range balances {
		if bal != 0 {
			summary = append(summary, counterpartyBalance{Counterparty: name, BalanceCent: bal})
		}
	}

	util.Success(c, util.Response{
		"items":   debts,
		"summary": summary,
	})
}

// DeleteDebt 删除借贷记录，同时删除挂接它的账目
func (h *DebtHandler) DeleteDebt(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var debt models.DebtRecord
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&debt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "记录不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND linked_debt_id = ?", user.ID, debt.ID).
			Delete(&models.LedgerEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&debt).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}
