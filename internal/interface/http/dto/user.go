package dto

// RegisterRequest 开通用户
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=50" example:"reader"`
	Email    string `json:"email" binding:"omitempty,email,max=100" example:"reader@example.com"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin" example:"user"`
}
