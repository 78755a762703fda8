package dto

// ── department DTOs ──

// CreateDepartmentRequest create a department
type CreateDepartmentRequest struct {
	Name        string  `json:"name"        binding:"required,min=2,max=100"`
	Code        string  `json:"code"        binding:"required,min=2,max=20"`
	Description string  `json:"description" binding:"omitempty,max=500"`
	HODID       *string `json:"hod_id"      binding:"omitempty,uuid"`
}

// UpdateDepartmentRequest partial update
type UpdateDepartmentRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	HODID       *string `json:"hod_id"      binding:"omitempty,uuid"`
	IsActive    *bool   `json:"is_active"`
}

// DepartmentListRequest list filters
type DepartmentListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// DepartmentDetailResponse department with member count
type DepartmentDetailResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	HODID       *string `json:"hod_id,omitempty"`
	IsActive    bool    `json:"is_active"`
	MemberCount int64   `json:"member_count"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}
