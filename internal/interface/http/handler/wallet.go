package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-core/internal/application/batch"
	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	appwallet "github.com/xiebiao/bookstore-core/internal/application/wallet"
	"github.com/xiebiao/bookstore-core/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-core/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

// WalletHandler 钱包HTTP处理器
type WalletHandler struct {
	ledger      *appwallet.Ledger
	lifecycle   *apporder.Lifecycle
	coordinator *batch.Coordinator
}

// NewWalletHandler 创建钱包处理器
func NewWalletHandler(ledger *appwallet.Ledger, lifecycle *apporder.Lifecycle, coordinator *batch.Coordinator) *WalletHandler {
	return &WalletHandler{ledger: ledger, lifecycle: lifecycle, coordinator: coordinator}
}

// GetWallet 查询余额, 首次访问时创建钱包
// @Summary      我的钱包
// @Tags         钱包
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.WalletResponse}
// @Router       /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, err := h.ledger.GetWallet(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewWalletResponse(w))
}

// Deposit 充值
// @Summary      充值
// @Tags         钱包
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AmountRequest true "金额"
// @Success      200 {object} response.Response{data=dto.ReceiptResponse}
// @Router       /wallet/deposit [post]
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	r, err := h.ledger.Deposit(c.Request.Context(), middleware.MustGetUserID(c), req.Amount, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReceiptResponse(r))
}

// Withdraw 提现
// @Summary      提现
// @Tags         钱包
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AmountRequest true "金额"
// @Success      200 {object} response.Response{data=dto.ReceiptResponse}
// @Router       /wallet/withdraw [post]
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	r, err := h.ledger.Withdraw(c.Request.Context(), middleware.MustGetUserID(c), req.Amount, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReceiptResponse(r))
}

// Pay 用余额支付订单
// @Summary      支付订单
// @Tags         钱包
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.OrderIDRequest true "订单ID"
// @Success      200 {object} response.Response{data=dto.ReceiptResponse}
// @Router       /wallet/pay [post]
func (h *WalletHandler) Pay(c *gin.Context) {
	var req dto.OrderIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 归属校验在事务里做
	r, err := h.ledger.PayOrder(c.Request.Context(), middleware.MustGetUserID(c), req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReceiptResponse(r))
}

// Refund 已支付订单退款到下单人钱包
// @Summary      退款
// @Tags         钱包
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.OrderIDRequest true "订单ID"
// @Success      200 {object} response.Response{data=dto.ReceiptResponse}
// @Router       /wallet/refund [post]
func (h *WalletHandler) Refund(c *gin.Context) {
	var req dto.OrderIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	o, err := h.lifecycle.Get(ctx, req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := checkOwner(c, o); err != nil {
		response.Error(c, err)
		return
	}

	r, err := h.ledger.Refund(ctx, req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReceiptResponse(r))
}

// BatchPay 批量支付
// 总额超过余额时整批拒绝; 不存在、不属于自己、非待支付的订单单独报错
// @Summary      批量支付
// @Tags         钱包
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.BatchPayRequest true "订单ID列表"
// @Success      200 {object} response.Response{data=dto.BatchPayResponse}
// @Router       /wallet/batch-pay [post]
func (h *WalletHandler) BatchPay(c *gin.Context) {
	var req dto.BatchPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.coordinator.BatchPay(c.Request.Context(), middleware.MustGetUserID(c), req.OrderIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBatchPayResponse(res))
}

// ListTransactions 流水
// @Summary      钱包流水
// @Tags         钱包
// @Produce      json
// @Security     BearerAuth
// @Param        type       query string false "all|deposit|withdraw|payment|refund"
// @Param        start_date query string false "yyyy-mm-dd, 与end_date同时给"
// @Param        end_date   query string false "yyyy-mm-dd"
// @Param        page       query int    false "页码" default(1)
// @Param        page_size  query int    false "每页条数" default(10)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.TransactionResponse}}
// @Router       /wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	var q dto.TransactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page, size := q.Values()

	txs, total, err := h.ledger.ListTransactions(c.Request.Context(), middleware.MustGetUserID(c), appwallet.HistoryQuery{
		Type:      q.Type,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewTransactionList(txs), total, page, size)
}

// Reconcile 对账: 余额与流水合计是否一致
// @Summary      钱包对账
// @Tags         钱包
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.ReconcileResponse}
// @Router       /wallet/reconcile [get]
func (h *WalletHandler) Reconcile(c *gin.Context) {
	r, err := h.ledger.Reconcile(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReconcileResponse(r))
}
