package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary 注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "注册信息"
// @Success 201 {object} util.Response
// @Router /api/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.UserRole(req.Role),
	}
	// 管理员账号不允许自助注册
	if user.Role == model.Admin {
		user.Role = model.Student
	}

	if err := ac.AuthService.Register(user); err != nil {
		if err == util.ErrEmailRegistered {
			util.Conflict(c, err.Error())
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Created(c, user)
}

// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body LoginRequest true "登录信息"
// @Success 200 {object} util.Response
// @Router /api/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	token, user, err := ac.AuthService.Login(req.Email, req.Password)
	if err != nil {
		util.Unauthorized(c)
		return
	}

	util.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// @Summary 当前用户信息
// @Tags 认证
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/profile [get]
func (ac *AuthController) GetProfile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		util.Unauthorized(c)
		return
	}

	user, err := ac.AuthService.GetProfile(actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, user)
}
