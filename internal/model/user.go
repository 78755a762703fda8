package model

// User account — table users
type User struct {
	UserID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name               string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email              string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone              string  `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role               Role    `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	DepartmentID       *string `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	ClassID            *string `gorm:"type:uuid"                                      json:"class_id,omitempty"`
	AcademicYear       int     `gorm:"type:smallint;not null;default:0"               json:"academic_year"` // students only, 1..5
	IsClassAdvisor     bool    `gorm:"not null;default:false"                         json:"is_class_advisor"`
	MustChangePassword bool    `gorm:"not null;default:false"                         json:"must_change_password"`
	VersionedModel

	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
	Class      *Class      `gorm:"foreignKey:ClassID;references:ClassID"           json:"class,omitempty"`
}

func (User) TableName() string { return "users" }

// DepartmentIDValue the department id or "" when the user has none
func (u *User) DepartmentIDValue() string {
	if u.DepartmentID == nil {
		return ""
	}
	return *u.DepartmentID
}
