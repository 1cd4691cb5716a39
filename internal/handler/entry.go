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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryHandler 负责账目相关接口
type EntryHandler struct {
	DB *gorm.DB
}

func NewEntryHandler(db *gorm.DB) *EntryHandler {
	return &EntryHandler{DB: db}
}

// ---------- 请求/响应结构 ----------

type createEntryReq struct {
	AccountID        uint   `json:"account_id" binding:"required"`
	Category         string `json:"category" binding:"max=64"`
	AmountYuan       string `json:"amount" binding:"required"`
	Note             string `json:"note" binding:"max=255"`
	OccurredAt       string `json:"occurred_at"`
	Kind             string `json:"kind" binding:"omitempty,oneof=ordinary transfer"`
	CounterAccountID uint   `json:"counter_account_id"` // transfer only
	FeeYuan          string `json:"fee"`                // transfer only
	FeeMode          string `json:"fee_mode" binding:"omitempty,oneof=fee_from_destination fee_added_to_source"`
	ExcludeBudget    bool   `json:"exclude_from_budget"`
	// income 为 true 时金额按正数入账（仅 ordinary）
	Income bool `json:"income"`
}

type entryResp struct {
	ID               uint      `json:"id"`
	AccountID        uint      `json:"account_id"`
	CategoryKey      string    `json:"category_key"`
	CategoryName     string    `json:"category"`
	AmountCent       int64     `json:"amount_cent"`
	AmountYuan       string    `json:"amount"`
	Note             string    `json:"note"`
	Kind             string    `json:"kind"`
	TransferGroupID  string    `json:"transfer_group_id,omitempty"`
	CounterAccountID uint      `json:"counter_account_id,omitempty"`
	LinkedDebtID     uint      `json:"linked_debt_id,omitempty"`
	ExcludedBudget   bool      `json:"excluded_from_budget"`
	OccurredAt       time.Time `json:"occurred_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// ---------- 工具函数 ----------

// convertYuanToCent 将字符串金额（元）转换为分，简单处理两位小数
func convertYuanToCent(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f*100 + 0.5), nil
}

// formatCentToYuan 把分转成元的字符串，两位小数
func formatCentToYuan(amountCent int64) string {
	return strconv.FormatFloat(float64(amountCent)/100.0, 'f', 2, 64)
}

// parseOccurredAt 解析交易时间，空串时取当前时间
func parseOccurredAt(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	layouts := []string{
		time.RFC3339,          // 2025-12-03T00:00:00+08:00
		"2006-01-02T15:04:05", // 2025-12-03T00:00:00
		"2006-01-02",          // 2025-12-03
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

func toEntryResp(e *models.LedgerEntry) entryResp {
	return entryResp{
		ID:               e.ID,
		AccountID:        e.AccountID,
		CategoryKey:      e.CategoryKey,
		CategoryName:     category.DisplayName(e.CategoryKey),
		AmountCent:       e.AmountCent,
		AmountYuan:       formatCentToYuan(e.AmountCent),
		Note:             e.Note,
		Kind:             e.Kind,
		TransferGroupID:  e.TransferGroupID,
		CounterAccountID: e.CounterAccountID,
		LinkedDebtID:     e.LinkedDebtID,
		ExcludedBudget:   e.ExcludedFromBudget,
		OccurredAt:       e.OccurredAt,
		CreatedAt:        e.CreatedAt,
	}
}

// ---------- 记一笔 ----------

func (h *EntryHandler) CreateEntry(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	amountCent, err := convertYuanToCent(req.AmountYuan)
	if err != nil || amountCent <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}

	// 账户必须属于当前用户
	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", req.AccountID, user.ID).
		First(&account).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "账户不存在")
		return
	}

	occurredAt := parseOccurredAt(req.OccurredAt)

	if req.Kind == models.KindTransfer {
		h.createTransfer(c, user.ID, &req, amountCent, occurredAt)
		return
	}

	catKey := category.StableKey(strings.TrimSpace(req.Category))
	if catKey == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择类别")
		return
	}

	// 支出记负数，收入记正数
	if !req.Income {
		amountCent = -amountCent
	}

	entry := models.LedgerEntry{
		UserID:             user.ID,
		AccountID:          req.AccountID,
		CategoryKey:        catKey,
		AmountCent:         amountCent,
		OccurredAt:         occurredAt,
		Note:               req.Note,
		Kind:               models.KindOrdinary,
		ExcludedFromBudget: req.ExcludeBudget,
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"entry": toEntryResp(&entry),
	})
}

// createTransfer 创建转账的两条腿：金额符号相反、账户互换、共享 group id
func (h *EntryHandler) createTransfer(c *gin.Context, userID uint, req *createEntryReq, amountCent int64, occurredAt time.Time) {
	if req.CounterAccountID == 0 || req.CounterAccountID == req.AccountID {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择转入账户")
		return
	}
	var counter models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", req.CounterAccountID, userID).
		First(&counter).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "转入账户不存在")
		return
	}

	var feeCent int64
	if req.FeeYuan != "" {
		var err error
		if feeCent, err = convertYuanToCent(req.FeeYuan); err != nil || feeCent < 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "手续费无效")
			return
		}
	}

	sourceAmount := -amountCent
	destAmount := amountCent - feeCent
	if req.FeeMode == models.FeeAddedToSource {
		sourceAmount = -(amountCent + feeCent)
		destAmount = amountCent
	}

	groupID := uuid.New().String()
	note := req.Note

	source := models.LedgerEntry{
		UserID:             userID,
		AccountID:          req.AccountID,
		CategoryKey:        category.KeyTransferOut,
		AmountCent:         sourceAmount,
		OccurredAt:         occurredAt,
		Note:               note,
		Kind:               models.KindTransfer,
		TransferGroupID:    groupID,
		CounterAccountID:   req.CounterAccountID,
		ExcludedFromBudget: req.ExcludeBudget,
	}
	dest := models.LedgerEntry{
		UserID:             userID,
		AccountID:          req.CounterAccountID,
		CategoryKey:        category.KeyTransferIn,
		AmountCent:         destAmount,
		OccurredAt:         occurredAt,
		Note:               note,
		Kind:               models.KindTransfer,
		TransferGroupID:    groupID,
		CounterAccountID:   req.AccountID,
		ExcludedFromBudget: req.ExcludeBudget,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&source).Error; err != nil {
			return err
		}
		return tx.Create(&dest).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"source": toEntryResp(&source),
		"dest":   toEntryResp(&dest),
	})
}

// ---------- 修改 ----------

type updateEntryReq struct {
	Category      string `json:"category" binding:"max=64"`
	AmountYuan    string `json:"amount" binding:"required"`
	Note          string `json:"note" binding:"max=255"`
	OccurredAt    string `json:"occurred_at"`
	ExcludeBudget bool   `json:"exclude_from_budget"`
	Income        bool   `json:"income"`
}

// UpdateEntry 修改一条已有的账目记录（只能修改自己的；转账腿请删除后重建）
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var req updateEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	amountCent, err := convertYuanToCent(req.AmountYuan)
	if err != nil || amountCent <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}

	var entry models.LedgerEntry
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "记录不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	// 单独修改一条转账腿会破坏两腿金额相反的配对关系
	if entry.Kind == models.KindTransfer {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "转账记录请删除后重新创建")
		return
	}

	catKey := category.StableKey(strings.TrimSpace(req.Category))
	if catKey == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择类别")
		return
	}

	if !req.Income {
		amountCent = -amountCent
	}

	entry.CategoryKey = catKey
	entry.AmountCent = amountCent
	entry.Note = req.Note
	entry.OccurredAt = parseOccurredAt(req.OccurredAt)
	entry.ExcludedFromBudget = req.ExcludeBudget

	if err := h.DB.Save(&entry).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"entry": toEntryResp(&entry),
	})
}

// ---------- 删除 ----------

// DeleteEntry 删除账目。转账会同时删除另一条腿；
// 关联了借贷记录的账目会级联删除对应 DebtRecord。
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var entry models.LedgerEntry
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "记录不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if entry.Kind == models.KindTransfer && entry.TransferGroupID != "" {
			// 两条腿一起删，保持配对不变式
			if err := tx.Where("user_id = ? AND transfer_group_id = ?", user.ID, entry.TransferGroupID).
				Delete(&models.LedgerEntry{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Delete(&entry).Error; err != nil {
				return err
			}
		}

		if entry.LinkedDebtID != 0 {
			if err := tx.Where("id = ? AND user_id = ?", entry.LinkedDebtID, user.ID).
				Delete(&models.DebtRecord{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}

// ---------- 列表 ----------

// ListEntries 查询账目列表，支持时间范围、账户、类别筛选和排序
func (h *EntryHandler) ListEntries(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	// 分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	// 时间筛选：start / end，格式 YYYY-MM-DD
	var (
		startTime time.Time
		endTime   time.Time
		hasStart  bool
		hasEnd    bool
		err       error
	)
	if s := c.Query("start"); s != "" {
		if startTime, err = time.Parse("2006-01-02", s); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "开始日期格式错误，应为 YYYY-MM-DD")
			return
		}
		hasStart = true
	}
	if s := c.Query("end"); s != "" {
		if endTime, err = time.Parse("2006-01-02", s); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "结束日期格式错误，应为 YYYY-MM-DD")
			return
		}
		// 结束日期按“当天结束”处理：< end+1 天
		endTime = endTime.Add(24 * time.Hour)
		hasEnd = true
	}

	// 如果前端没有传时间范围，默认最近 30 天
	if !hasStart && !hasEnd {
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		startTime = today.AddDate(0, 0, -29)
		endTime = today.AddDate(0, 0, 1)
		hasStart, hasEnd = true, true
	}

	// 排序方式：date_desc(默认)、date_asc、amount_desc、amount_asc
	orderBy := "occurred_at DESC, id DESC"
	switch c.DefaultQuery("sort", "date_desc") {
	case "date_asc":
		orderBy = "occurred_at ASC, id ASC"
	case "amount_desc":
		orderBy = "amount_cent DESC, id DESC"
	case "amount_asc":
		orderBy = "amount_cent ASC, id ASC"
	}

	base := h.DB.Model(&models.LedgerEntry{}).Where("user_id = ?", user.ID)
	if hasStart {
		base = base.Where("occurred_at >= ?", startTime)
	}
	if hasEnd {
		base = base.Where("occurred_at < ?", endTime)
	}
	if accStr := c.Query("account_id"); accStr != "" {
		if accID, err := strconv.Atoi(accStr); err == nil && accID > 0 {
			base = base.Where("account_id = ?", accID)
		}
	}
	if catStr := c.Query("categories"); catStr != "" {
		var keys []string
		for _, p := range strings.Split(catStr, ",") {
			if p = strings.TrimSpace(p); p != "" {
				keys = append(keys, category.StableKey(p))
			}
		}
		if len(keys) > 0 {
			base = base.Where("category_key IN ?", keys)
		}
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	var entries []models.LedgerEntry
	if err := base.Session(&gorm.Session{}).
		Order(orderBy).
		Limit(size).
		Offset(offset).
		Find(&entries).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	items := make([]entryResp, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResp(&entries[i]))
	}

	// 统计汇总（在相同筛选条件下）
	var allEntries []models.LedgerEntry
	if err := base.Session(&gorm.Session{}).Find(&allEntries).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "统计失败")
		return
	}

	var totalIncomeCent, totalExpenseCent int64

	type categorySummary struct {
		CategoryKey  string `json:"category_key"`
		CategoryName string `json:"category"`
		IncomeCent   int64  `json:"income_cent"`
		ExpenseCent  int64  `json:"expense_cent"`
	}

	catMap := make(map[string]*categorySummary)
	for i := range allEntries {
		e := &allEntries[i]

		if e.AmountCent > 0 {
			totalIncomeCent += e.AmountCent
		} else {
			totalExpenseCent += -e.AmountCent
		}

		cs, ok := catMap[e.CategoryKey]
		if !ok {
			cs = &categorySummary{
				CategoryKey:  e.CategoryKey,
				CategoryName: category.DisplayName(e.CategoryKey),
			}
			catMap[e.CategoryKey] = cs
		}
		if e.AmountCent > 0 {
			cs.IncomeCent += e.AmountCent
		} else {
			cs.ExpenseCent += -e.AmountCent
		}
	}

	catList := make([]categorySummary, 0, len(catMap))
	for _, cs := range catMap {
		catList = append(catList, *cs)
	}

	summary := gin.H{
		"total_income_cent":  totalIncomeCent,
		"total_income":       formatCentToYuan(totalIncomeCent),
		"total_expense_cent": totalExpenseCent,
		"total_expense":      formatCentToYuan(totalExpenseCent),
		"balance_cent":       totalIncomeCent - totalExpenseCent,
		"balance":            formatCentToYuan(totalIncomeCent - totalExpenseCent),
		"by_category":        catList,
	}

	util.Success(c, util.Response{
		"items":   items,
		"total":   total,
		"page":    page,
		"size":    size,
		"summary": summary,
	})
}
