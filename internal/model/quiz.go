package model

import "time"

// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID    uint           `gorm:"index" json:"courseId"`
	CreatorID   uint           `gorm:"index" json:"creatorId"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	StartAt     *time.Time     `json:"startAt,omitempty"`
	EndAt       *time.Time     `json:"endAt,omitempty"`
	// 可选访问口令，bcrypt 摘要；为空表示无需口令
	PasswordHash string         `gorm:"size:100" json:"-"`
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 测验创建时固化的题目快照，创建后不再修改，作为判分依据
type QuizQuestion struct {
	BaseModel
	QuizID  uint   `gorm:"index" json:"quizId"`
	Order   int    `gorm:"column:question_order" json:"order"`
	Content string `gorm:"type:text" json:"content"`
	Options string `gorm:"type:json" json:"options"` // JSON 数组，各选项文本
	// 正确答案的 0/1 标志数组，与 Options 位置对应，如 [1,0,0,0]
	CorrectAnswer string `gorm:"type:json" json:"-"`
	Points        int    `gorm:"default:1" json:"points"`
	Weight        int    `gorm:"default:1" json:"weight"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// Open reports whether the quiz accepts new attempts at the given time.
func (q *Quiz) Open(now time.Time) bool {
	if q.StartAt != nil && now.Before(*q.StartAt) {
		return false
	}
	if q.EndAt != nil && now.After(*q.EndAt) {
		return false
	}
	return true
}
