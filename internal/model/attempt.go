package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptBanned     AttemptStatus = "banned"
	AttemptDeleted    AttemptStatus = "deleted"
)

// Terminal reports whether no further student-facing transition is allowed.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptInProgress
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	QuizID uint          `gorm:"index;uniqueIndex:uniq_active_attempt,priority:1" json:"quizId"`
	UserID uint          `gorm:"index;uniqueIndex:uniq_active_attempt,priority:2" json:"userId"`
	Status AttemptStatus `gorm:"size:20;default:'in_progress';index" json:"status"`

	// Active 仅进行中的作答置位，离开 in_progress 时清为 NULL。
	// NULL 不参与唯一约束，(quiz_id, user_id, active) 唯一索引因此
	// 只约束活跃作答：同一测验同一人最多一个，由存储层而非应用层保证。
	Active *bool `gorm:"uniqueIndex:uniq_active_attempt,priority:3" json:"-"`

	Score    int `json:"score"`
	MaxScore int `json:"maxScore"`

	StartedAt   time.Time  `json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`

	// 开考时采集的客户端信息，创建后不再变更
	UserAgent string `gorm:"size:255" json:"userAgent"`
	IPAddress string `gorm:"size:45" json:"ipAddress"`

	Answers []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// AttemptAnswer 每题一行，(attempt_id, question_id) 唯一，后写覆盖先写
type AttemptAnswer struct {
	BaseModel
	AttemptID  uint   `gorm:"index;uniqueIndex:idx_attempt_question,priority:1" json:"attemptId"`
	QuestionID uint   `gorm:"uniqueIndex:idx_attempt_question,priority:2" json:"questionId"`
	Answer     string `gorm:"type:json" json:"answer"` // 0/1 标志数组，如 [1,0,0,0]
	// 提交判分前仅为客户端参考值，判分后为权威结果
	Correct      *bool `json:"correct,omitempty"`
	PointsEarned int   `json:"pointsEarned"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
