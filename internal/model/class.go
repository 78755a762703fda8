package model

// Class a student section of a department — table classes
type Class struct {
	ClassID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	DepartmentID string  `gorm:"type:uuid;not null"                             json:"department_id"`
	Name         string  `gorm:"type:varchar(50);not null"                      json:"name"`
	AcademicYear int     `gorm:"type:smallint;not null"                         json:"academic_year"`
	AdvisorID    *string `gorm:"type:uuid"                                      json:"advisor_id,omitempty"`
	VersionedModel

	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
	Advisor    *User       `gorm:"foreignKey:AdvisorID;references:UserID"         json:"advisor,omitempty"`
}

func (Class) TableName() string { return "classes" }
