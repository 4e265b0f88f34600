package dto

import "time"

// TimeLayout 响应里的时间格式
const TimeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// PageQuery 分页参数
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"10"`
}

// Values 补全默认值: page=1, page_size=10
func (q PageQuery) Values() (int, int) {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	return page, size
}

// IDsRequest 批量操作请求
type IDsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1,max=100" example:"1,2,3"`
}
