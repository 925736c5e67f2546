package service

import (
	"encoding/json"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuiz(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, 1, quiz.Questions[0].Order)
	assert.Equal(t, 2, quiz.Questions[1].Order)
	assert.JSONEq(t, "[1,0,0,0]", quiz.Questions[0].CorrectAnswer)
}

func TestCreateQuizNotCourseTeacher(t *testing.T) {
	env := newTestEnv(t)
	other := env.createUser(t, "other-teacher@example.com", model.Teacher)

	_, err := env.quizSvc.CreateQuiz(env.actor(other), env.course.ID, QuizRequest{
		Title:     "x",
		Questions: []QuizQuestionRequest{{Content: "Q", Options: []string{"A"}, Answer: []int{1}}},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestCreateQuizPasswordHashed(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, func(r *QuizRequest) {
		r.Password = "secret"
	})

	var stored model.Quiz
	require.NoError(t, env.db.First(&stored, quiz.ID).Error)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "secret", stored.PasswordHash)
}

func TestGetQuizHidesAnswers(t *testing.T) {
	env := newTestEnv(t)
	created := env.createQuiz(t, nil)

	quiz, err := env.quizSvc.GetQuiz(env.actor(env.student), created.ID)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)

	// 学生视图序列化后不含正确答案和口令摘要
	raw, err := json.Marshal(quiz)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correctAnswer")
	assert.NotContains(t, string(raw), "CorrectAnswer")
	assert.NotContains(t, string(raw), "passwordHash")
}

func TestGetQuizNonMember(t *testing.T) {
	env := newTestEnv(t)
	created := env.createQuiz(t, nil)

	outsider := env.createUser(t, "outsider@example.com", model.Student)
	_, err := env.quizSvc.GetQuiz(env.actor(outsider), created.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseMember)
}

func TestGetQuizWithAnswers(t *testing.T) {
	env := newTestEnv(t)
	created := env.createQuiz(t, nil)

	_, _, err := env.quizSvc.GetQuizWithAnswers(env.actor(env.student), created.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, views, err := env.quizSvc.GetQuizWithAnswers(env.actor(env.teacher), created.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, []int{1, 0, 0, 0}, views[0].Answer)
	assert.Equal(t, []int{0, 1, 0, 0}, views[1].Answer)
}

func TestListQuizzes(t *testing.T) {
	env := newTestEnv(t)
	env.createQuiz(t, nil)
	env.createQuiz(t, func(r *QuizRequest) { r.Title = "第二章测验" })

	quizzes, total, err := env.quizSvc.ListQuizzes(env.actor(env.student), env.course.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, quizzes, 2)
}
