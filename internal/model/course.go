package model

import "time"

// swagger:model Course
type Course struct {
	BaseModel
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	TeacherID   uint   `gorm:"index" json:"teacherId"`
	Teacher     *User  `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Archived    bool   `gorm:"default:false" json:"archived"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseMember 维护课程成员关系（学生选课记录）
type CourseMember struct {
	CourseID uint      `gorm:"primaryKey" json:"courseId"`
	UserID   uint      `gorm:"primaryKey;index" json:"userId"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (CourseMember) TableName() string {
	return "course_members"
}
