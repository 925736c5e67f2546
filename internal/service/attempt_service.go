package service

import (
	"encoding/json"
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/monitoring"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Actor 每个操作显式携带请求者身份，服务内部不做任何隐式的会话查找
type Actor struct {
	UserID    uint
	Role      model.UserRole
	UserAgent string
	IP        string
}

func (a Actor) Moderator() bool {
	return a.Role == model.Teacher || a.Role == model.Admin
}

type AttemptService struct {
	AttemptRepo *repository.AttemptRepository
	QuizRepo    *repository.QuizRepository
}

func NewAttemptService(attemptRepo *repository.AttemptRepository, quizRepo *repository.QuizRepository) *AttemptService {
	return &AttemptService{
		AttemptRepo: attemptRepo,
		QuizRepo:    quizRepo,
	}
}

type AnswerInput struct {
	QuestionID uint  `json:"questionId" binding:"required"`
	Answer     []int `json:"answer" binding:"required"`
	// 客户端自评字段，提交判分前仅存储不采信
	Correct      *bool `json:"correct,omitempty"`
	PointsEarned int   `json:"pointsEarned,omitempty"`
}

// Enroll 开考。测验存在、时间窗开放、口令正确、无进行中作答四项检查
// 依次进行，各自返回独立的错误。
func (s *AttemptService) Enroll(quizID uint, password string, actor Actor) (*model.QuizAttempt, error) {
	if actor.Role != model.Student {
		return nil, util.ErrPermissionDenied
	}

	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	now := time.Now()
	if !quiz.Open(now) {
		return nil, util.ErrQuizClosed
	}

	if quiz.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(quiz.PasswordHash), []byte(password)); err != nil {
			return nil, util.ErrWrongQuizPassword
		}
	}

	attempt := &model.QuizAttempt{
		QuizID:    quizID,
		UserID:    actor.UserID,
		Status:    model.AttemptInProgress,
		StartedAt: now,
		UserAgent: actor.UserAgent,
		IPAddress: actor.IP,
	}
	if err := s.AttemptRepo.CreateExclusive(attempt); err != nil {
		if errors.Is(err, util.ErrAttemptInProgress) {
			monitoring.AttemptCounter.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	monitoring.AttemptCounter.WithLabelValues("started").Inc()
	return attempt, nil
}

// SaveAnswers 批量保存。只替换请求中出现的题目，未提及的保持原值。
func (s *AttemptService) SaveAnswers(attemptID, actorUserID uint, answers []AnswerInput) (*model.QuizAttempt, error) {
	attempt, err := s.ownedInProgress(attemptID, actorUserID)
	if err != nil {
		return nil, err
	}

	rows := make([]model.AttemptAnswer, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, toAnswerRow(attempt.ID, a))
	}
	if err := s.AttemptRepo.UpsertAnswers(attempt.ID, rows); err != nil {
		return nil, err
	}

	return s.AttemptRepo.FindByID(attempt.ID)
}

// AutoSaveAnswer 单题增量保存，同题后写覆盖先写
func (s *AttemptService) AutoSaveAnswer(attemptID, actorUserID uint, answer AnswerInput) (*model.QuizAttempt, error) {
	attempt, err := s.ownedInProgress(attemptID, actorUserID)
	if err != nil {
		return nil, err
	}

	row := toAnswerRow(attempt.ID, answer)
	if err := s.AttemptRepo.UpsertAnswer(attempt.ID, row); err != nil {
		return nil, err
	}

	return s.AttemptRepo.FindByID(attempt.ID)
}

// Submit 终局提交。按题目快照逐题判分，0/1 标志数组按位对比，
// 整题对才得分，单题得分为 points × weight。
func (s *AttemptService) Submit(attemptID, actorUserID uint) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != actorUserID {
		return nil, util.ErrNotOwner
	}
	switch attempt.Status {
	case model.AttemptInProgress:
	case model.AttemptSubmitted:
		return nil, util.ErrAlreadySubmitted
	default:
		return nil, util.ErrAttemptFinished
	}

	questions, err := s.QuizRepo.QuestionsByQuiz(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	stored := make(map[uint]model.AttemptAnswer, len(attempt.Answers))
	for _, a := range attempt.Answers {
		stored[a.QuestionID] = a
	}

	var score, maxScore int
	graded := make([]model.AttemptAnswer, 0, len(questions))
	for _, q := range questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		weight := q.Weight
		if weight <= 0 {
			weight = 1
		}
		full := points * weight
		maxScore += full

		row, answered := stored[q.ID]
		correct := false
		if answered {
			correct = flagsEqual(parseFlags(row.Answer), parseFlags(q.CorrectAnswer))
		} else {
			row = model.AttemptAnswer{AttemptID: attempt.ID, QuestionID: q.ID, Answer: "[]"}
		}

		earned := 0
		if correct {
			earned = full
			score += full
		}
		row.Correct = &correct
		row.PointsEarned = earned
		graded = append(graded, row)
	}

	now := time.Now()
	finalized, err := s.AttemptRepo.FinalizeSubmit(attempt.ID, score, maxScore, now, graded)
	if err != nil {
		return nil, err
	}
	if !finalized {
		// 状态条件更新没有命中，说明并发提交或管理操作已抢先
		current, err := s.AttemptRepo.FindByID(attempt.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == model.AttemptSubmitted {
			return nil, util.ErrAlreadySubmitted
		}
		return nil, util.ErrAttemptFinished
	}

	monitoring.AttemptCounter.WithLabelValues("submitted").Inc()
	return s.AttemptRepo.FindByID(attempt.ID)
}

// Ban 封禁作答，教师/管理员专用，除已删除外任何状态均可封禁
func (s *AttemptService) Ban(attemptID uint, actor Actor) (*model.QuizAttempt, error) {
	if !actor.Moderator() {
		return nil, util.ErrPermissionDenied
	}

	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	switch attempt.Status {
	case model.AttemptDeleted:
		return nil, util.ErrAttemptFinished
	case model.AttemptBanned:
		return attempt, nil
	}

	ok, err := s.AttemptRepo.ForceStatus(attempt.ID, model.AttemptBanned, model.AttemptDeleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrAttemptFinished
	}

	monitoring.AttemptCounter.WithLabelValues("banned").Inc()
	return s.AttemptRepo.FindByID(attempt.ID)
}

// Delete 软删除，本人或教师/管理员可操作，记录不做物理删除
func (s *AttemptService) Delete(attemptID uint, actor Actor) error {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		}
		return err
	}
	if attempt.UserID != actor.UserID && !actor.Moderator() {
		return util.ErrPermissionDenied
	}
	if attempt.Status == model.AttemptDeleted {
		return nil
	}

	if _, err := s.AttemptRepo.ForceStatus(attempt.ID, model.AttemptDeleted); err != nil {
		return err
	}
	monitoring.AttemptCounter.WithLabelValues("deleted").Inc()
	return nil
}

// GetAttempt 本人或教师/管理员可查看；已删除的作答对学生不可见
func (s *AttemptService) GetAttempt(attemptID uint, actor Actor) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != actor.UserID && !actor.Moderator() {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Status == model.AttemptDeleted && !actor.Moderator() {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptService) ListByQuiz(quizID uint, actor Actor) ([]model.QuizAttempt, error) {
	if !actor.Moderator() {
		return nil, util.ErrPermissionDenied
	}
	return s.AttemptRepo.ListByQuiz(quizID, true)
}

func (s *AttemptService) ownedInProgress(attemptID, actorUserID uint) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != actorUserID {
		return nil, util.ErrNotOwner
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptFinished
	}
	return attempt, nil
}

func toAnswerRow(attemptID uint, in AnswerInput) model.AttemptAnswer {
	raw, _ := json.Marshal(in.Answer)
	return model.AttemptAnswer{
		AttemptID:    attemptID,
		QuestionID:   in.QuestionID,
		Answer:       string(raw),
		Correct:      in.Correct,
		PointsEarned: in.PointsEarned,
	}
}

func parseFlags(raw string) []int {
	var flags []int
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return nil
	}
	return flags
}

func flagsEqual(a, b []int) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
