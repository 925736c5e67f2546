package controller

import (
	"errors"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// actorFromContext 把认证中间件写入的身份连同客户端信息装配成显式参数
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:    claims.UserID,
		Role:      claims.Role,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}, true
}

// pathID 解析路径上的数字 ID，非数字值按参数错误返回 400 而不是落到 404
func pathID(c *gin.Context) (uint, bool) {
	id, err := util.ParseUint(c.Param("id"))
	if err != nil {
		util.BadRequest(c, "无效的ID")
		return 0, false
	}
	return id, true
}

// respondError 业务错误到 HTTP 状态码的统一映射
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrInviteNotFound),
		errors.Is(err, util.ErrRoomNotFound):
		util.NotFound(c)

	case errors.Is(err, util.ErrPermissionDenied),
		errors.Is(err, util.ErrNotOwner),
		errors.Is(err, util.ErrNotCourseMember),
		errors.Is(err, util.ErrWrongQuizPassword):
		util.Forbidden(c)

	case errors.Is(err, util.ErrAttemptInProgress),
		errors.Is(err, util.ErrAlreadySubmitted),
		errors.Is(err, util.ErrAlreadyCourseMember):
		util.Conflict(c, err.Error())

	case errors.Is(err, util.ErrQuizClosed),
		errors.Is(err, util.ErrAttemptFinished),
		errors.Is(err, util.ErrInviteUnusable):
		util.BadRequest(c, err.Error())

	default:
		util.LogInternalError(c, err)
	}
}
