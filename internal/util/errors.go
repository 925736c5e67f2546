package util

import "errors"

// 未找到类
var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrCourseNotFound  = errors.New("course not found")
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrRoomNotFound    = errors.New("chat room not found")
)

// 权限类
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotOwner         = errors.New("not the owner of this attempt")
	ErrNotCourseMember  = errors.New("not a member of this course")
)

// 冲突类
var (
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrAttemptInProgress   = errors.New("an in-progress attempt already exists")
	ErrAlreadySubmitted    = errors.New("attempt already submitted")
	ErrAlreadyCourseMember = errors.New("already a member of this course")
)

// 状态/校验类
var (
	ErrQuizClosed        = errors.New("quiz is not open")
	ErrWrongQuizPassword = errors.New("wrong quiz password")
	ErrAttemptFinished   = errors.New("attempt is no longer in progress")
	ErrInviteUnusable    = errors.New("invite expired, revoked or used up")
)
