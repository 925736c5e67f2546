package service

import (
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// 内存库只允许单连接，避免每个连接各拿一份空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

type testEnv struct {
	db *gorm.DB

	teacher *model.User
	student *model.User

	course *model.Course

	attemptSvc *AttemptService
	quizSvc    *QuizService
	courseSvc  *CourseService
	inviteSvc  *InviteService
	chatSvc    *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	courseRepo := repository.NewCourseRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	chatRepo := repository.NewChatRepository(db, nil)

	courseSvc := NewCourseService(courseRepo)

	env := &testEnv{
		db:         db,
		courseSvc:  courseSvc,
		quizSvc:    NewQuizService(quizRepo, courseRepo, courseSvc),
		attemptSvc: NewAttemptService(attemptRepo, quizRepo),
		inviteSvc:  NewInviteService(inviteRepo, courseRepo),
		chatSvc:    NewChatService(chatRepo, courseRepo, courseSvc),
	}

	env.teacher = env.createUser(t, "teacher@example.com", model.Teacher)
	env.student = env.createUser(t, "student@example.com", model.Student)

	env.course = &model.Course{Name: "C语言程序设计", TeacherID: env.teacher.ID}
	require.NoError(t, db.Create(env.course).Error)
	env.join(t, env.student)

	return env
}

func (e *testEnv) createUser(t *testing.T, email string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{Name: email, Email: email, Password: "x", Role: role}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) join(t *testing.T, user *model.User) {
	t.Helper()
	require.NoError(t, e.db.Create(&model.CourseMember{CourseID: e.course.ID, UserID: user.ID}).Error)
}

// createQuiz 两道四选一题，Q1 答案 [1,0,0,0]，Q2 答案 [0,1,0,0]
func (e *testEnv) createQuiz(t *testing.T, mutate func(*QuizRequest)) *model.Quiz {
	t.Helper()
	req := QuizRequest{
		Title: "第一章测验",
		Questions: []QuizQuestionRequest{
			{Content: "Q1", Options: []string{"A", "B", "C", "D"}, Answer: []int{1, 0, 0, 0}},
			{Content: "Q2", Options: []string{"A", "B", "C", "D"}, Answer: []int{0, 1, 0, 0}, Points: 2, Weight: 3},
		},
	}
	if mutate != nil {
		mutate(&req)
	}
	quiz, err := e.quizSvc.CreateQuiz(e.actor(e.teacher), e.course.ID, req)
	require.NoError(t, err)
	return quiz
}

func (e *testEnv) actor(user *model.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role, UserAgent: "go-test", IP: "127.0.0.1"}
}

func timePtr(tm time.Time) *time.Time {
	return &tm
}
