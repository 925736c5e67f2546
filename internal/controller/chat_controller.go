package controller

import (
	"strconv"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	Service *service.ChatService
	Hub     *service.ChatHub
}

func NewChatController(svc *service.ChatService, hub *service.ChatHub) *ChatController {
	return &ChatController{Service: svc, Hub: hub}
}

type CreateRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// @Summary 创建课程讨论房间
// @Tags 聊天
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body CreateRoomRequest true "房间名"
// @Success 201 {object} util.Response
// @Router /api/courses/{id}/rooms [post]
func (cc *ChatController) CreateRoom(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	room, err := cc.Service.CreateRoom(actor, courseID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, room)
}

// @Summary 课程讨论房间列表
// @Tags 聊天
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/rooms [get]
func (cc *ChatController) ListRooms(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	courseID, ok := pathID(c)
	if !ok {
		return
	}

	rooms, err := cc.Service.ListRooms(actor, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, rooms)
}

// @Summary 发送消息
// @Tags 聊天
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "房间ID"
// @Param body body PostMessageRequest true "消息内容"
// @Success 201 {object} util.Response
// @Router /api/rooms/{id}/messages [post]
func (cc *ChatController) PostMessage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	roomID := c.Param("id")
	msg, err := cc.Service.PostMessage(actor, roomID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	cc.Hub.BroadcastMessage(roomID, msg)
	util.Created(c, msg)
}

// @Summary 历史消息
// @Description before 传上一页最旧一条消息的 ID，按时间倒序返回
// @Tags 聊天
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "房间ID"
// @Param before query string false "翻页游标"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/rooms/{id}/messages [get]
func (cc *ChatController) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := cc.Service.History(actor, c.Param("id"), c.Query("before"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, msgs)
}

// @Summary 进入房间（WebSocket）
// @Tags 聊天
// @Security ApiKeyAuth
// @Param id path string true "房间ID"
// @Router /api/rooms/{id}/ws [get]
func (cc *ChatController) ServeWS(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	roomID := c.Param("id")
	if _, err := cc.Service.RequireRoomAccess(actor, roomID); err != nil {
		respondError(c, err)
		return
	}

	if err := cc.Hub.ServeWS(c, roomID, actor); err != nil {
		util.LogInternalError(c, err)
	}
}
