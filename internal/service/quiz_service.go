package service

import (
	"encoding/json"
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type QuizService struct {
	QuizRepo   *repository.QuizRepository
	CourseSvc  *CourseService
	CourseRepo *repository.CourseRepository
}

func NewQuizService(quizRepo *repository.QuizRepository, courseRepo *repository.CourseRepository, courseSvc *CourseService) *QuizService {
	return &QuizService{
		QuizRepo:   quizRepo,
		CourseRepo: courseRepo,
		CourseSvc:  courseSvc,
	}
}

type QuizQuestionRequest struct {
	Content string   `json:"content" binding:"required"`
	Options []string `json:"options" binding:"required"`
	// 正确答案的 0/1 标志数组，与 options 位置对应
	Answer []int `json:"answer" binding:"required"`
	Points int   `json:"points"`
	Weight int   `json:"weight"`
}

type QuizRequest struct {
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	StartAt     *time.Time            `json:"startAt"`
	EndAt       *time.Time            `json:"endAt"`
	Password    string                `json:"password"`
	Questions   []QuizQuestionRequest `json:"questions" binding:"required"`
}

// QuizQuestionView 带答案的教师视图，学生端永远不走这个结构
type QuizQuestionView struct {
	model.QuizQuestion
	Answer []int `json:"answer"`
}

// CreateQuiz 题目快照在创建时一并固化，之后不可修改
func (s *QuizService) CreateQuiz(actor Actor, courseID uint, req QuizRequest) (*model.Quiz, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.TeacherID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}

	quiz := &model.Quiz{
		CourseID:    courseID,
		CreatorID:   actor.UserID,
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		quiz.PasswordHash = string(hash)
	}

	for i, q := range req.Questions {
		options, _ := json.Marshal(q.Options)
		answer, _ := json.Marshal(q.Answer)
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Order:         i + 1,
			Content:       q.Content,
			Options:       string(options),
			CorrectAnswer: string(answer),
			Points:        q.Points,
			Weight:        q.Weight,
		})
	}

	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetQuiz 学生视角。题目不带正确答案，访问要求课程成员身份。
func (s *QuizService) GetQuiz(actor Actor, quizID uint) (*model.Quiz, error) {
	quiz, err := s.findQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCourseAccess(actor, quiz.CourseID); err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetQuizWithAnswers 教师视角，附带每题的正确答案
func (s *QuizService) GetQuizWithAnswers(actor Actor, quizID uint) (*model.Quiz, []QuizQuestionView, error) {
	if !actor.Moderator() {
		return nil, nil, util.ErrPermissionDenied
	}
	quiz, err := s.findQuiz(quizID)
	if err != nil {
		return nil, nil, err
	}

	views := make([]QuizQuestionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		var answer []int
		json.Unmarshal([]byte(q.CorrectAnswer), &answer)
		views = append(views, QuizQuestionView{QuizQuestion: q, Answer: answer})
	}
	return quiz, views, nil
}

func (s *QuizService) ListQuizzes(actor Actor, courseID uint, page, limit int) ([]model.Quiz, int64, error) {
	if err := s.requireCourseAccess(actor, courseID); err != nil {
		return nil, 0, err
	}
	return s.QuizRepo.ListByCourse(courseID, page, limit)
}

func (s *QuizService) findQuiz(quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) requireCourseAccess(actor Actor, courseID uint) error {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return err
	}
	return s.CourseSvc.RequireAccess(actor, course)
}
