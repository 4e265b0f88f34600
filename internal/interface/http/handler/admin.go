package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-core/internal/application/batch"
	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	"github.com/xiebiao/bookstore-core/internal/application/sweeper"
	"github.com/xiebiao/bookstore-core/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

// AdminHandler 管理接口, 路由上已经挂了RequireAdmin
type AdminHandler struct {
	lifecycle   *apporder.Lifecycle
	coordinator *batch.Coordinator
	sweeper     *sweeper.Sweeper
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(lifecycle *apporder.Lifecycle, coordinator *batch.Coordinator, sw *sweeper.Sweeper) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, coordinator: coordinator, sweeper: sw}
}

// ListOrders 全部订单
// @Summary      全部订单
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码" default(1)
// @Param        page_size query int false "每页条数" default(10)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderResponse}}
// @Router       /admin/orders [get]
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page, size := q.Values()

	orders, total, err := h.lifecycle.ListPaged(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewOrderList(orders), total, page, size)
}

// DeleteOrder 硬删除订单, 不归还库存
// @Summary      删除订单
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Router       /admin/orders/{id} [delete]
func (h *AdminHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.lifecycle.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": 1})
}

// BatchDeleteOrders 批量删除订单
// @Summary      批量删除订单
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.IDsRequest true "订单ID列表"
// @Success      200 {object} response.Response{data=batch.Result}
// @Router       /admin/orders/batch-delete [post]
func (h *AdminHandler) BatchDeleteOrders(c *gin.Context) {
	var req dto.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.coordinator.BatchDelete(c.Request.Context(), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// BatchDeleteBooks 批量删除图书, 被订单引用的图书不会删除
// @Summary      批量删除图书
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.IDsRequest true "图书ID列表"
// @Success      200 {object} response.Response{data=batch.Result}
// @Router       /admin/books/batch-delete [post]
func (h *AdminHandler) BatchDeleteBooks(c *gin.Context) {
	var req dto.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.coordinator.BatchDeleteBooks(c.Request.Context(), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Sweep 立即清理超时未支付订单
// @Summary      清理超时订单
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        threshold_minutes query int false "超时阈值(分钟), 默认取配置"
// @Success      200 {object} response.Response{data=sweeper.Result}
// @Router       /admin/orders/sweep [post]
func (h *AdminHandler) Sweep(c *gin.Context) {
	var q dto.SweepQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.sweeper.Sweep(c.Request.Context(), time.Duration(q.ThresholdMinutes)*time.Minute)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
