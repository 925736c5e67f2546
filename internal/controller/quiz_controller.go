package controller

import (
	"strconv"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

// @Summary 创建测验
// @Description 题目快照随测验一次性固化，创建后不可修改
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.QuizRequest true "测验与题目"
// @Success 201 {object} util.Response
// @Router /api/courses/{id}/quizzes [post]
func (qc *QuizController) CreateQuiz(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req service.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	quiz, err := qc.Service.CreateQuiz(actor, courseID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, quiz)
}

// @Summary 测验列表
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/quizzes [get]
func (qc *QuizController) ListQuizzes(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	quizzes, total, err := qc.Service.ListQuizzes(actor, courseID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: quizzes, Total: total, Page: page, Limit: limit})
}

// @Summary 测验详情（学生视角，不含答案）
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (qc *QuizController) GetQuiz(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	quiz, err := qc.Service.GetQuiz(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, quiz)
}

// @Summary 测验详情（教师视角，含答案）
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/quizzes/{id} [get]
func (qc *QuizController) GetQuizWithAnswers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	quiz, questions, err := qc.Service.GetQuizWithAnswers(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{
		"quiz":      quiz,
		"questions": questions,
	})
}
