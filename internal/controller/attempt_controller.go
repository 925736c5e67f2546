package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

type EnrollRequest struct {
	Password string `json:"password"`
}

type SaveAnswersRequest struct {
	Answers []service.AnswerInput `json:"answers" binding:"required"`
}

// @Summary 开始作答
// @Description 同一测验同时只允许一份进行中的作答
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body EnrollRequest true "访问口令（测验未设口令时可为空）"
// @Success 201 {object} util.Response
// @Router /api/quizzes/{id}/attempts [post]
func (ac *AttemptController) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	quizID, ok := pathID(c)
	if !ok {
		return
	}

	attempt, err := ac.Service.Enroll(quizID, req.Password, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, attempt)
}

// @Summary 批量保存答案
// @Description 只替换请求中出现的题目，未提及的题目保持原值
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Param body body SaveAnswersRequest true "答案列表"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers [put]
func (ac *AttemptController) SaveAnswers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req SaveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	attempt, err := ac.Service.SaveAnswers(id, actor.UserID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// @Summary 单题自动保存
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Param body body service.AnswerInput true "单题答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers/auto [put]
func (ac *AttemptController) AutoSaveAnswer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req service.AnswerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	attempt, err := ac.Service.AutoSaveAnswer(id, actor.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// @Summary 提交作答
// @Description 按题目快照判分并终局，重复提交返回冲突
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [put]
func (ac *AttemptController) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	attempt, err := ac.Service.Submit(id, actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// @Summary 封禁作答
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/ban [put]
func (ac *AttemptController) Ban(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	attempt, err := ac.Service.Ban(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// @Summary 删除作答（软删除）
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [delete]
func (ac *AttemptController) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := ac.Service.Delete(id, actor); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, nil)
}

// @Summary 作答详情
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (ac *AttemptController) GetAttempt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	attempt, err := ac.Service.GetAttempt(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// @Summary 测验的全部作答（教师视角）
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/quizzes/{id}/attempts [get]
func (ac *AttemptController) ListByQuiz(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	quizID, ok := pathID(c)
	if !ok {
		return
	}

	attempts, err := ac.Service.ListByQuiz(quizID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempts)
}
