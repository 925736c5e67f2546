package repository

import (
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) FindByID(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_id asc")
	}).First(&attempt, id).Error
	return &attempt, err
}

// FindActive 返回 (quiz, user) 当前进行中的作答，submitted/banned/deleted 不算活跃
func (r *AttemptRepository) FindActive(quizID, userID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Where("quiz_id = ? AND user_id = ? AND status = ?",
		quizID, userID, model.AttemptInProgress).First(&attempt).Error
	return &attempt, err
}

// CreateExclusive 创建活跃作答。先查后插只负责常规路径的提前报错，
// 并发窗口里两个事务都数到 0 时由 (quiz_id, user_id, active) 唯一索引
// 兜底，后提交的一方拿到重复键错误。MySQL 的 REPEATABLE READ 快照读
// 不加锁，单靠计数挡不住并发重复开考。
func (r *AttemptRepository) CreateExclusive(attempt *model.QuizAttempt) error {
	active := true
	attempt.Active = &active
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.QuizAttempt{}).
			Where("quiz_id = ? AND user_id = ? AND status = ?",
				attempt.QuizID, attempt.UserID, model.AttemptInProgress).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return util.ErrAttemptInProgress
		}
		if err := tx.Create(attempt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrAttemptInProgress
			}
			return err
		}
		return nil
	})
}

// UpsertAnswer 按 (attempt_id, question_id) 落盘，同题后写覆盖先写
func (r *AttemptRepository) UpsertAnswer(attemptID uint, ans model.AttemptAnswer) error {
	return r.UpsertAnswers(attemptID, []model.AttemptAnswer{ans})
}

// UpsertAnswers 写盘前先对作答主行做 in_progress 条件更新：
// 用更新占住行锁并核对状态，与 FinalizeSubmit 的状态翻转互斥，
// 迟到的保存落在提交之后时在这里被拒绝，不会覆盖已判分的行。
func (r *AttemptRepository) UpsertAnswers(attemptID uint, answers []model.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrAttemptFinished
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "correct", "points_earned", "updated_at"}),
		}).Create(&answers).Error
	})
}

// FinalizeSubmit 提交落库。状态翻转是带 status 条件的 UPDATE，
// RowsAffected 为 0 说明已被并发提交或后台操作抢先，调用方按冲突处理。
func (r *AttemptRepository) FinalizeSubmit(attemptID uint, score, maxScore int, submittedAt time.Time, graded []model.AttemptAnswer) (bool, error) {
	finalized := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":       model.AttemptSubmitted,
				"active":       nil,
				"score":        score,
				"max_score":    maxScore,
				"submitted_at": submittedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if len(graded) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"answer", "correct", "points_earned", "updated_at"}),
			}).Create(&graded).Error; err != nil {
				return err
			}
		}
		finalized = true
		return nil
	})
	return finalized, err
}

// ForceStatus 管理操作的状态强制翻转，excluded 中的当前状态不允许离开
func (r *AttemptRepository) ForceStatus(attemptID uint, to model.AttemptStatus, excluded ...model.AttemptStatus) (bool, error) {
	query := r.DB.Model(&model.QuizAttempt{}).Where("id = ?", attemptID)
	if len(excluded) > 0 {
		query = query.Where("status NOT IN ?", excluded)
	}
	res := query.Updates(map[string]interface{}{"status": to, "active": nil})
	return res.RowsAffected > 0, res.Error
}

func (r *AttemptRepository) ListByQuiz(quizID uint, includeModerated bool) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	query := r.DB.Where("quiz_id = ?", quizID)
	if !includeModerated {
		query = query.Where("status NOT IN ?", []model.AttemptStatus{model.AttemptBanned, model.AttemptDeleted})
	}
	err := query.Order("started_at desc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByUser(userID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND status <> ?", userID, model.AttemptDeleted).
		Order("started_at desc").Find(&attempts).Error
	return attempts, err
}
