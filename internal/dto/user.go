package dto

// ── user DTOs ──

// CreateUserRequest create an account
type CreateUserRequest struct {
	Name           string  `json:"name"           binding:"required,min=2,max=100"`
	Email          string  `json:"email"          binding:"required,email"`
	Phone          string  `json:"phone"          binding:"omitempty,max=20"`
	Password       string  `json:"password"       binding:"omitempty,min=8,max=64"` // generated when empty
	Role           string  `json:"role"           binding:"required"`
	DepartmentID   *string `json:"department_id"  binding:"omitempty,uuid"`
	ClassID        *string `json:"class_id"       binding:"omitempty,uuid"`
	AcademicYear   int     `json:"academic_year"  binding:"omitempty,min=1,max=5"`
	IsClassAdvisor bool    `json:"is_class_advisor"`
}

// UpdateUserRequest partial update
type UpdateUserRequest struct {
	Name           *string `json:"name"             binding:"omitempty,min=2,max=100"`
	Phone          *string `json:"phone"            binding:"omitempty,max=20"`
	Role           *string `json:"role"`
	DepartmentID   *string `json:"department_id"    binding:"omitempty,uuid"`
	ClassID        *string `json:"class_id"         binding:"omitempty,uuid"`
	AcademicYear   *int    `json:"academic_year"    binding:"omitempty,min=1,max=5"`
	IsClassAdvisor *bool   `json:"is_class_advisor"`
}

// UserListRequest list filters
type UserListRequest struct {
	PaginationRequest
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	ClassID      string `form:"class_id"      binding:"omitempty,uuid"`
	Role         string `form:"role"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=50"`
}

// UserResponse user profile
type UserResponse struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone,omitempty"`
	Role               string           `json:"role"`
	Department         *DepartmentBrief `json:"department,omitempty"`
	ClassID            *string          `json:"class_id,omitempty"`
	AcademicYear       int              `json:"academic_year,omitempty"`
	IsClassAdvisor     bool             `json:"is_class_advisor"`
	MustChangePassword bool             `json:"must_change_password"`
	CreatedAt          string           `json:"created_at"`
}

// CreateUserResponse created user plus the generated password, if any
type CreateUserResponse struct {
	User         *UserResponse `json:"user"`
	TempPassword string        `json:"temp_password,omitempty"`
}

// ResetPasswordResponse new temporary password
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportUserError one rejected spreadsheet row
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportUserResponse bulk import summary
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`

	Credentials []ImportCredential `json:"credentials,omitempty"`
}

// ImportCredential generated password of an imported account
type ImportCredential struct {
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}
