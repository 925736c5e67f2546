package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type InviteController struct {
	Service *service.InviteService
}

func NewInviteController(svc *service.InviteService) *InviteController {
	return &InviteController{Service: svc}
}

type RedeemRequest struct {
	Token string `json:"token" binding:"required"`
}

// @Summary 生成课程邀请码
// @Description 邀请码明文仅在本次响应中返回一次
// @Tags 课程邀请
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.InviteRequest true "有效期与次数限制"
// @Success 201 {object} util.Response
// @Router /api/courses/{id}/invites [post]
func (ic *InviteController) CreateInvite(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	created, err := ic.Service.CreateInvite(actor, courseID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, created)
}

// @Summary 查询课程邀请码
// @Tags 课程邀请
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/invites [get]
func (ic *InviteController) ListInvites(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	invites, err := ic.Service.ListInvites(actor, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, invites)
}

// @Summary 兑换邀请码加入课程
// @Tags 课程邀请
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body RedeemRequest true "邀请码"
// @Success 200 {object} util.Response
// @Router /api/invites/redeem [post]
func (ic *InviteController) RedeemInvite(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	course, err := ic.Service.RedeemInvite(actor, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, course)
}

// @Summary 撤销邀请码
// @Tags 课程邀请
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "邀请码ID"
// @Success 200 {object} util.Response
// @Router /api/invites/{id} [delete]
func (ic *InviteController) RevokeInvite(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := ic.Service.RevokeInvite(actor, id); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, nil)
}
