package handler

import (
	"net/http"
	"strconv"
	"strings"

	"pocket-ledger/internal/rates"
	"pocket-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

// RatesHandler 负责汇率换算接口
type RatesHandler struct {
	Provider *rates.Provider
}

func NewRatesHandler(p *rates.Provider) *RatesHandler {
	return &RatesHandler{Provider: p}
}

// Convert 换算金额：?amount_cent=1234&from=CNY&to=USD
func (h *RatesHandler) Convert(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	amountCent, err := strconv.ParseInt(c.Query("amount_cent"), 10, 64)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "金额无效")
		return
	}
	from := strings.ToUpper(strings.TrimSpace(c.Query("from")))
	to := strings.ToUpper(strings.TrimSpace(c.Query("to")))
	if from == "" || to == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请指定币种")
		return
	}

	converted, err := h.Provider.Convert(amountCent, from, to)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "暂不支持该币种")
		return
	}

	util.Success(c, util.Response{
		"amount_cent": converted,
		"from":        from,
		"to":          to,
		"updated_at":  h.Provider.LastUpdated(),
	})
}

// Refresh 手动刷新汇率表
func (h *RatesHandler) Refresh(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	if err := h.Provider.Refresh(c.Request.Context()); err != nil {
		util.Error(c, http.StatusBadGateway, util.CodeServerErr, "汇率更新失败，请稍后再试")
		return
	}

	util.Success(c, util.Response{
		"updated_at": h.Provider.LastUpdated(),
	})
}
