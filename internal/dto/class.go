package dto

// ── class DTOs ──

// CreateClassRequest create a class
type CreateClassRequest struct {
	DepartmentID string  `json:"department_id" binding:"required,uuid"`
	Name         string  `json:"name"          binding:"required,min=1,max=50"`
	AcademicYear int     `json:"academic_year" binding:"required,min=1,max=5"`
	AdvisorID    *string `json:"advisor_id"    binding:"omitempty,uuid"`
}

// UpdateClassRequest partial update
type UpdateClassRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=1,max=50"`
	AcademicYear *int    `json:"academic_year" binding:"omitempty,min=1,max=5"`
	AdvisorID    *string `json:"advisor_id"    binding:"omitempty,uuid"`
}

// ClassListRequest list filters
type ClassListRequest struct {
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}

// ClassResponse class details
type ClassResponse struct {
	ID           string     `json:"id"`
	DepartmentID string     `json:"department_id"`
	Name         string     `json:"name"`
	AcademicYear int        `json:"academic_year"`
	Advisor      *UserBrief `json:"advisor,omitempty"`
	StudentCount int64      `json:"student_count"`
}
