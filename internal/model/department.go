package model

// Department academic department — table departments
type Department struct {
	DepartmentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"department_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Code         string  `gorm:"type:varchar(20);not null"                      json:"code"`
	Description  string  `gorm:"type:text"                                      json:"description,omitempty"`
	HODID        *string `gorm:"column:hod_id;type:uuid"                        json:"hod_id,omitempty"`
	IsActive     bool    `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

func (Department) TableName() string { return "departments" }
