package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-core/internal/application/batch"
	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	"github.com/xiebiao/bookstore-core/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-core/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	lifecycle   *apporder.Lifecycle
	coordinator *batch.Coordinator
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(lifecycle *apporder.Lifecycle, coordinator *batch.Coordinator) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, coordinator: coordinator}
}

// CreateOrder 创建订单
// @Summary      创建订单
// @Description  按明细下单, 库存不足时整单失败, 不会部分扣减
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单明细"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	// 1. 参数绑定
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. 转换为应用层明细, 保持请求顺序
	lines := make([]apporder.Line, len(req.Items))
	for i, it := range req.Items {
		lines[i] = apporder.Line{BookID: it.BookID, Quantity: it.Quantity}
	}

	// 3. 下单
	o, err := h.lifecycle.Create(c.Request.Context(), middleware.MustGetUserID(c), lines)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// CreateSingleOrder 单本下单
// @Summary      单本下单
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateSingleOrderRequest true "图书和数量"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders/single [post]
func (h *OrderHandler) CreateSingleOrder(c *gin.Context) {
	var req dto.CreateSingleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := h.lifecycle.CreateFromSingleBook(c.Request.Context(), middleware.MustGetUserID(c), req.BookID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// ListMyOrders 我的订单
// @Summary      我的订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码" default(1)
// @Param        page_size query int false "每页条数" default(10)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderResponse}}
// @Router       /orders [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page, size := q.Values()

	orders, total, err := h.lifecycle.ListByUser(c.Request.Context(), middleware.MustGetUserID(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewOrderList(orders), total, page, size)
}

// GetOrder 订单详情, 只能看自己的(管理员除外)
// @Summary      订单详情
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	o, err := h.lifecycle.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := checkOwner(c, o); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// CancelOrder 取消待支付订单, 归还库存后删除订单
// @Summary      取消订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	o, err := h.lifecycle.Get(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := checkOwner(c, o); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.lifecycle.Cancel(ctx, id, apporder.ReasonUser); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order_id": id, "cancelled": true})
}

// BatchCancel 批量取消自己的订单, 逐个处理, 失败项单独返回
// @Summary      批量取消
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.IDsRequest true "订单ID列表"
// @Success      200 {object} response.Response{data=batch.Result}
// @Router       /orders/batch-cancel [post]
func (h *OrderHandler) BatchCancel(c *gin.Context) {
	var req dto.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var (
		res *batch.Result
		err error
	)
	if middleware.IsAdmin(c) {
		res, err = h.coordinator.BatchCancel(c.Request.Context(), req.IDs)
	} else {
		res, err = h.coordinator.BatchCancelOwned(c.Request.Context(), middleware.MustGetUserID(c), req.IDs)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
