package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type attemptTestServer struct {
	router  *gin.Engine
	db      *gorm.DB
	teacher *model.User
	student *model.User
	quiz    *model.Quiz

	// current 为当前请求的身份，由 do 在发起请求前设置
	current *model.User
}

func newAttemptTestServer(t *testing.T) *attemptTestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	teacher := &model.User{Name: "t", Email: "t@example.com", Password: "x", Role: model.Teacher}
	student := &model.User{Name: "s", Email: "s@example.com", Password: "x", Role: model.Student}
	require.NoError(t, db.Create(teacher).Error)
	require.NoError(t, db.Create(student).Error)

	course := &model.Course{Name: "课程", TeacherID: teacher.ID}
	require.NoError(t, db.Create(course).Error)
	require.NoError(t, db.Create(&model.CourseMember{CourseID: course.ID, UserID: student.ID}).Error)

	courseRepo := repository.NewCourseRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	courseSvc := service.NewCourseService(courseRepo)
	quizSvc := service.NewQuizService(quizRepo, courseRepo, courseSvc)
	attemptSvc := service.NewAttemptService(repository.NewAttemptRepository(db), quizRepo)

	quiz, err := quizSvc.CreateQuiz(
		service.Actor{UserID: teacher.ID, Role: model.Teacher},
		course.ID,
		service.QuizRequest{
			Title: "测验",
			Questions: []service.QuizQuestionRequest{
				{Content: "Q1", Options: []string{"A", "B"}, Answer: []int{1, 0}},
			},
		})
	require.NoError(t, err)

	ctrl := NewAttemptController(attemptSvc)

	srv := &attemptTestServer{db: db, teacher: teacher, student: student, quiz: quiz}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if srv.current != nil {
			c.Set("user", &util.Claims{UserID: srv.current.ID, Role: srv.current.Role, Email: srv.current.Email})
		}
	})
	api := router.Group("/api")
	{
		api.POST("/quizzes/:id/attempts", ctrl.Enroll)
		api.GET("/attempts/:id", ctrl.GetAttempt)
		api.PUT("/attempts/:id/answers", ctrl.SaveAnswers)
		api.PUT("/attempts/:id/answers/auto", ctrl.AutoSaveAnswer)
		api.PUT("/attempts/:id/submit", ctrl.Submit)
		api.PUT("/attempts/:id/ban", ctrl.Ban)
		api.DELETE("/attempts/:id", ctrl.Delete)
		api.GET("/teacher/quizzes/:id/attempts", ctrl.ListByQuiz)
	}

	srv.router = router
	return srv
}

// do 以给定用户身份发起请求，绕过 JWT 中间件直接注入 claims
func (s *attemptTestServer) do(t *testing.T, user *model.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "go-test")

	s.current = user
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *attemptTestServer) enroll(t *testing.T, user *model.User) uint {
	t.Helper()
	w := s.do(t, user, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", s.quiz.ID), EnrollRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data model.QuizAttempt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.ID
}

func TestEnrollEndpoint(t *testing.T) {
	s := newAttemptTestServer(t)

	id := s.enroll(t, s.student)
	assert.NotZero(t, id)

	// 重复开考返回 409
	w := s.do(t, s.student, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", s.quiz.ID), EnrollRequest{})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 测验不存在返回 404
	w = s.do(t, s.student, http.MethodPost, "/api/quizzes/9999/attempts", EnrollRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 教师开考返回 403
	w = s.do(t, s.teacher, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", s.quiz.ID), EnrollRequest{})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitEndpoint(t *testing.T) {
	s := newAttemptTestServer(t)
	id := s.enroll(t, s.student)

	q1 := s.quiz.Questions[0].ID
	w := s.do(t, s.student, http.MethodPut, fmt.Sprintf("/api/attempts/%d/answers", id), SaveAnswersRequest{
		Answers: []service.AnswerInput{{QuestionID: q1, Answer: []int{1, 0}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, s.student, http.MethodPut, fmt.Sprintf("/api/attempts/%d/submit", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data model.QuizAttempt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.AttemptSubmitted, resp.Data.Status)
	assert.Equal(t, 1, resp.Data.Score)

	// 重复提交返回 409
	w = s.do(t, s.student, http.MethodPut, fmt.Sprintf("/api/attempts/%d/submit", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 已提交后保存答案返回 400
	w = s.do(t, s.student, http.MethodPut, fmt.Sprintf("/api/attempts/%d/answers", id), SaveAnswersRequest{
		Answers: []service.AnswerInput{{QuestionID: q1, Answer: []int{0, 1}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMalformedIDRejected(t *testing.T) {
	s := newAttemptTestServer(t)

	// 路径 ID 不是数字时按参数错误返回 400，而不是当作 ID 0 落到 404
	w := s.do(t, s.student, http.MethodGet, "/api/attempts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = s.do(t, s.student, http.MethodPut, "/api/attempts/abc/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, s.student, http.MethodPost, "/api/quizzes/-1/attempts", EnrollRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAnswersEndpointNotOwner(t *testing.T) {
	s := newAttemptTestServer(t)
	id := s.enroll(t, s.student)

	other := &model.User{Name: "o", Email: "o@example.com", Password: "x", Role: model.Student}
	require.NoError(t, s.db.Create(other).Error)
	require.NoError(t, s.db.Create(&model.CourseMember{CourseID: s.quiz.CourseID, UserID: other.ID}).Error)

	w := s.do(t, other, http.MethodPut, fmt.Sprintf("/api/attempts/%d/answers", id), SaveAnswersRequest{
		Answers: []service.AnswerInput{{QuestionID: s.quiz.Questions[0].ID, Answer: []int{1, 0}}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBanAndDeleteEndpoints(t *testing.T) {
	s := newAttemptTestServer(t)
	id := s.enroll(t, s.student)

	// 学生不能封禁
	w := s.do(t, s.student, http.MethodPut, fmt.Sprintf("/api/attempts/%d/ban", id), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, s.teacher, http.MethodPut, fmt.Sprintf("/api/attempts/%d/ban", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 教师视图含封禁记录
	w = s.do(t, s.teacher, http.MethodGet, fmt.Sprintf("/api/teacher/quizzes/%d/attempts", s.quiz.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, s.student, http.MethodDelete, fmt.Sprintf("/api/attempts/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 删除后学生查看返回 404
	w = s.do(t, s.student, http.MethodGet, fmt.Sprintf("/api/attempts/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
