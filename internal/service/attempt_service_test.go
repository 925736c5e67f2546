package service

import (
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnroll(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	assert.Equal(t, env.student.ID, attempt.UserID)
	assert.Equal(t, "go-test", attempt.UserAgent)
	assert.Equal(t, "127.0.0.1", attempt.IPAddress)
	assert.False(t, attempt.StartedAt.IsZero())
}

func TestEnrollTeacherForbidden(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	_, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.teacher))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestEnrollQuizNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.attemptSvc.Enroll(9999, "", env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestEnrollClosedQuiz(t *testing.T) {
	env := newTestEnv(t)

	ended := env.createQuiz(t, func(r *QuizRequest) {
		r.EndAt = timePtr(time.Now().Add(-time.Hour))
	})
	_, err := env.attemptSvc.Enroll(ended.ID, "", env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrQuizClosed)

	notStarted := env.createQuiz(t, func(r *QuizRequest) {
		r.StartAt = timePtr(time.Now().Add(time.Hour))
	})
	_, err = env.attemptSvc.Enroll(notStarted.ID, "", env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrQuizClosed)
}

func TestEnrollPassword(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, func(r *QuizRequest) {
		r.Password = "open sesame"
	})

	_, err := env.attemptSvc.Enroll(quiz.ID, "wrong", env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrWrongQuizPassword)

	_, err = env.attemptSvc.Enroll(quiz.ID, "open sesame", env.actor(env.student))
	assert.NoError(t, err)
}

func TestEnrollDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	_, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	_, err = env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrAttemptInProgress)

	var count int64
	env.db.Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quiz.ID, env.student.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestEnrollDuplicateBlockedByUniqueIndex(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	_, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	// 绕过服务层的计数检查直接插入，模拟两个并发事务都数到 0 的情况。
	// (quiz_id, user_id, active) 唯一索引必须在存储层把第二行挡下来。
	active := true
	dup := model.QuizAttempt{
		QuizID:    quiz.ID,
		UserID:    env.student.ID,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now(),
		Active:    &active,
	}
	err = env.db.Create(&dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestEnrollAgainAfterBan(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	first, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	_, err = env.attemptSvc.Ban(first.ID, env.actor(env.teacher))
	require.NoError(t, err)

	// 封禁清掉活跃标记，唯一索引不再挡新开考
	second, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEnrollAgainAfterSubmit(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)

	first, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	_, err = env.attemptSvc.Submit(first.ID, env.student.ID)
	require.NoError(t, err)

	// 上一次作答已终局，可以重新开考
	second, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSaveAnswers(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	q1 := quiz.Questions[0].ID
	q2 := quiz.Questions[1].ID

	saved, err := env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: q1, Answer: []int{0, 0, 0, 1}},
		{QuestionID: q2, Answer: []int{0, 1, 0, 0}},
	})
	require.NoError(t, err)
	require.Len(t, saved.Answers, 2)

	// 只覆盖请求中出现的题目，未提及的保持原值
	saved, err = env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: q1, Answer: []int{1, 0, 0, 0}},
	})
	require.NoError(t, err)
	require.Len(t, saved.Answers, 2)
	byQuestion := answersByQuestion(saved.Answers)
	assert.JSONEq(t, "[1,0,0,0]", byQuestion[q1].Answer)
	assert.JSONEq(t, "[0,1,0,0]", byQuestion[q2].Answer)
}

func TestAutoSaveLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	q1 := quiz.Questions[0].ID
	_, err = env.attemptSvc.AutoSaveAnswer(attempt.ID, env.student.ID, AnswerInput{QuestionID: q1, Answer: []int{0, 1, 0, 0}})
	require.NoError(t, err)
	saved, err := env.attemptSvc.AutoSaveAnswer(attempt.ID, env.student.ID, AnswerInput{QuestionID: q1, Answer: []int{1, 0, 0, 0}})
	require.NoError(t, err)

	require.Len(t, saved.Answers, 1)
	assert.JSONEq(t, "[1,0,0,0]", saved.Answers[0].Answer)
}

func TestSaveAnswersNotOwner(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	other := env.createUser(t, "other@example.com", model.Student)
	env.join(t, other)

	_, err = env.attemptSvc.SaveAnswers(attempt.ID, other.ID, []AnswerInput{
		{QuestionID: quiz.Questions[0].ID, Answer: []int{1, 0, 0, 0}},
	})
	assert.ErrorIs(t, err, util.ErrNotOwner)

	// 答案未被写入
	var count int64
	env.db.Model(&model.AttemptAnswer{}).Where("attempt_id = ?", attempt.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSaveAnswersAfterSubmit(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	_, err = env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)

	_, err = env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: quiz.Questions[0].ID, Answer: []int{1, 0, 0, 0}},
	})
	assert.ErrorIs(t, err, util.ErrAttemptFinished)
}

func TestLateSaveBlockedAtStore(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	q1 := quiz.Questions[0].ID
	_, err = env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: q1, Answer: []int{1, 0, 0, 0}},
	})
	require.NoError(t, err)

	_, err = env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)

	// 模拟通过了服务层 in_progress 预检、落盘时提交已先行提交的迟到保存：
	// 写路径自带的状态条件必须拒绝它，不能覆盖已判分的行
	repo := repository.NewAttemptRepository(env.db)
	bogus := true
	err = repo.UpsertAnswer(attempt.ID, model.AttemptAnswer{
		AttemptID:    attempt.ID,
		QuestionID:   q1,
		Answer:       "[0,0,0,1]",
		Correct:      &bogus,
		PointsEarned: 99,
	})
	assert.ErrorIs(t, err, util.ErrAttemptFinished)

	current, err := env.attemptSvc.GetAttempt(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)
	row := answersByQuestion(current.Answers)[q1]
	assert.Equal(t, "[1,0,0,0]", row.Answer)
	require.NotNil(t, row.Correct)
	assert.True(t, *row.Correct)
	assert.Equal(t, 1, row.PointsEarned)
}

func TestSubmitScoring(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	q1 := quiz.Questions[0].ID // 1 分 × 1，正确答案 [1,0,0,0]
	q2 := quiz.Questions[1].ID // 2 分 × 3，正确答案 [0,1,0,0]

	_, err = env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: q1, Answer: []int{1, 0, 0, 0}},
		{QuestionID: q2, Answer: []int{0, 0, 1, 0}},
	})
	require.NoError(t, err)

	submitted, err := env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSubmitted, submitted.Status)
	assert.Equal(t, 1, submitted.Score)
	assert.Equal(t, 7, submitted.MaxScore)
	require.NotNil(t, submitted.SubmittedAt)

	byQuestion := answersByQuestion(submitted.Answers)
	require.NotNil(t, byQuestion[q1].Correct)
	assert.True(t, *byQuestion[q1].Correct)
	assert.Equal(t, 1, byQuestion[q1].PointsEarned)
	require.NotNil(t, byQuestion[q2].Correct)
	assert.False(t, *byQuestion[q2].Correct)
	assert.Equal(t, 0, byQuestion[q2].PointsEarned)
}

func TestSubmitUnansweredGradedWrong(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	// 一题不答直接交卷
	submitted, err := env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, submitted.Score)
	assert.Equal(t, 7, submitted.MaxScore)
	require.Len(t, submitted.Answers, 2)
	for _, a := range submitted.Answers {
		assert.JSONEq(t, "[]", a.Answer)
		require.NotNil(t, a.Correct)
		assert.False(t, *a.Correct)
		assert.Equal(t, 0, a.PointsEarned)
	}
}

func TestSubmitIgnoresClientSelfGrading(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	claimed := true
	_, err = env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: quiz.Questions[0].ID, Answer: []int{0, 0, 0, 1}, Correct: &claimed, PointsEarned: 100},
	})
	require.NoError(t, err)

	submitted, err := env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, submitted.Score)

	row := answersByQuestion(submitted.Answers)[quiz.Questions[0].ID]
	require.NotNil(t, row.Correct)
	assert.False(t, *row.Correct)
	assert.Equal(t, 0, row.PointsEarned)
}

func TestSubmitTwice(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	_, err = env.attemptSvc.SaveAnswers(attempt.ID, env.student.ID, []AnswerInput{
		{QuestionID: quiz.Questions[0].ID, Answer: []int{1, 0, 0, 0}},
	})
	require.NoError(t, err)

	first, err := env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)

	_, err = env.attemptSvc.Submit(attempt.ID, env.student.ID)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	// 重复提交不改变已记录的结果
	current, err := env.attemptSvc.GetAttempt(attempt.ID, env.actor(env.student))
	require.NoError(t, err)
	assert.Equal(t, first.Score, current.Score)
	assert.Equal(t, first.SubmittedAt.Unix(), current.SubmittedAt.Unix())
}

func TestSubmitBannedAttempt(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	_, err = env.attemptSvc.Ban(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)

	_, err = env.attemptSvc.Submit(attempt.ID, env.student.ID)
	assert.ErrorIs(t, err, util.ErrAttemptFinished)
}

func TestBan(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	// 学生不能封禁
	_, err = env.attemptSvc.Ban(attempt.ID, env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	banned, err := env.attemptSvc.Ban(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptBanned, banned.Status)

	// 重复封禁为幂等
	again, err := env.attemptSvc.Ban(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptBanned, again.Status)
}

func TestBanSubmittedAttempt(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	_, err = env.attemptSvc.Submit(attempt.ID, env.student.ID)
	require.NoError(t, err)

	// 已提交的作答也可以事后封禁
	banned, err := env.attemptSvc.Ban(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptBanned, banned.Status)
}

func TestBanDeletedAttempt(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	require.NoError(t, env.attemptSvc.Delete(attempt.ID, env.actor(env.student)))

	_, err = env.attemptSvc.Ban(attempt.ID, env.actor(env.teacher))
	assert.ErrorIs(t, err, util.ErrAttemptFinished)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	other := env.createUser(t, "other@example.com", model.Student)
	env.join(t, other)
	err = env.attemptSvc.Delete(attempt.ID, env.actor(other))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	require.NoError(t, env.attemptSvc.Delete(attempt.ID, env.actor(env.student)))

	// 软删除，记录仍在库中
	var stored model.QuizAttempt
	require.NoError(t, env.db.First(&stored, attempt.ID).Error)
	assert.Equal(t, model.AttemptDeleted, stored.Status)

	// 对学生不可见，对教师可见
	_, err = env.attemptSvc.GetAttempt(attempt.ID, env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
	got, err := env.attemptSvc.GetAttempt(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptDeleted, got.Status)

	// 重复删除为空操作
	assert.NoError(t, env.attemptSvc.Delete(attempt.ID, env.actor(env.student)))
}

func TestGetAttemptAccess(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)

	other := env.createUser(t, "other@example.com", model.Student)
	_, err = env.attemptSvc.GetAttempt(attempt.ID, env.actor(other))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = env.attemptSvc.GetAttempt(attempt.ID, env.actor(env.teacher))
	assert.NoError(t, err)

	_, err = env.attemptSvc.GetAttempt(9999, env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestListByQuiz(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, nil)
	attempt, err := env.attemptSvc.Enroll(quiz.ID, "", env.actor(env.student))
	require.NoError(t, err)
	_, err = env.attemptSvc.Ban(attempt.ID, env.actor(env.teacher))
	require.NoError(t, err)

	_, err = env.attemptSvc.ListByQuiz(quiz.ID, env.actor(env.student))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	// 教师视图包含已封禁的作答
	attempts, err := env.attemptSvc.ListByQuiz(quiz.ID, env.actor(env.teacher))
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.AttemptBanned, attempts[0].Status)
}

func answersByQuestion(answers []model.AttemptAnswer) map[uint]model.AttemptAnswer {
	m := make(map[uint]model.AttemptAnswer, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a
	}
	return m
}
