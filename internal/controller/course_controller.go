package controller

import (
	"strconv"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Service *service.CourseService
}

func NewCourseController(svc *service.CourseService) *CourseController {
	return &CourseController{Service: svc}
}

// @Summary 创建课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response
// @Router /api/courses [post]
func (cc *CourseController) CreateCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	course, err := cc.Service.CreateCourse(actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, course)
}

// @Summary 更新课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [put]
func (cc *CourseController) UpdateCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	course, err := cc.Service.UpdateCourse(actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, course)
}

// @Summary 课程列表
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (cc *CourseController) ListCourses(c *gin.Context) {
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

	courses, total, err := cc.Service.ListCourses(actor, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// @Summary 课程详情
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [get]
func (cc *CourseController) GetCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	course, err := cc.Service.GetCourse(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, course)
}

// @Summary 课程成员列表
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/members [get]
func (cc *CourseController) ListMembers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	members, err := cc.Service.ListMembers(actor, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, members)
}
