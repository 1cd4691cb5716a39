package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pocket-ledger/internal/category"
	"pocket-ledger/internal/models"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler 负责账目的导入导出
type ExportHandler struct {
	DB *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{DB: db}
}

var exportHeader = []string{"日期", "类别", "金额", "账户", "备注", "类型"}

// loadEntries 取出当前用户全部账目并附带账户名
func (h *ExportHandler) loadEntries(userID uint) ([]models.LedgerEntry, map[uint]string, error) {
	var entries []models.LedgerEntry
	if err := h.DB.Where("user_id = ?", userID).
		Order("occurred_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	var accounts []models.Account
	if err := h.DB.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return nil, nil, err
	}
	names := make(map[uint]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return entries, names, nil
}

func exportRow(e *models.LedgerEntry, accountNames map[uint]string) []string {
	return []string{
		e.OccurredAt.Format("2006-01-02 15:04:05"),
		category.DisplayName(e.CategoryKey),
		formatCentToYuan(e.AmountCent),
		accountNames[e.AccountID],
		e.Note,
		e.Kind,
	}
}

// ExportCSV 导出全部账目为 CSV（带 UTF-8 BOM，方便 Excel 打开）
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	entries, names, err := h.loadEntries(user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	filename := "ledger-" + time.Now().Format("20060102") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	// UTF-8 BOM
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for i := range entries {
		_ = w.Write(exportRow(&entries[i], names))
	}
	w.Flush()
}

// ExportXLSX 导出全部账目为 Excel 文件
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	entries, names, err := h.loadEntries(user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "账目"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for row := range entries {
		values := exportRow(&entries[row], names)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	filename := "ledger-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导出失败")
		return
	}
}

// ImportCSV 从 CSV 导入账目。
// 列顺序：日期, 类别, 金额, 账户, 备注。账户按名称匹配（不区分大小写），
// 匹配不到的行跳过并计入 skipped。
func (h *ExportHandler) ImportCSV(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择要导入的文件")
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "文件格式错误")
		return
	}
	if len(records) == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "文件为空")
		return
	}

	var accounts []models.Account
	if err := h.DB.Where("user_id = ?", user.ID).Find(&accounts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	accountByName := make(map[string]uint, len(accounts))
	for _, a := range accounts {
		accountByName[strings.ToLower(a.Name)] = a.ID
	}

	imported, skipped := 0, 0
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		for i, rec := range records {
			// 跳过表头
			if i == 0 && len(rec) > 0 && strings.Contains(rec[0], "日期") {
				continue
			}
			if len(rec) < 4 {
				skipped++
				continue
			}

			// BOM 可能粘在第一列
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")

			occurredAt := parseOccurredAt(strings.TrimSpace(rec[0]))
			amountStr := strings.TrimSpace(rec[2])
			negative := strings.HasPrefix(amountStr, "-")
			amountCent, err := convertYuanToCent(strings.TrimPrefix(amountStr, "-"))
			if err != nil || amountCent <= 0 {
				skipped++
				continue
			}
			if negative {
				amountCent = -amountCent
			}

			accID, ok := accountByName[strings.ToLower(strings.TrimSpace(rec[3]))]
			if !ok {
				skipped++
				continue
			}

			note := ""
			if len(rec) > 4 {
				note = strings.TrimSpace(rec[4])
			}

			entry := models.LedgerEntry{
				UserID:      user.ID,
				AccountID:   accID,
				CategoryKey: category.StableKey(strings.TrimSpace(rec[1])),
				AmountCent:  amountCent,
				OccurredAt:  occurredAt,
				Note:        note,
				Kind:        models.KindOrdinary,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("import row %d: %w", i+1, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导入失败")
		return
	}

	util.Success(c, util.Response{
		"imported": imported,
		"skipped":  skipped,
	})
}
