package service

import (
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type InviteService struct {
	InviteRepo *repository.InviteRepository
	CourseRepo *repository.CourseRepository
}

func NewInviteService(inviteRepo *repository.InviteRepository, courseRepo *repository.CourseRepository) *InviteService {
	return &InviteService{
		InviteRepo: inviteRepo,
		CourseRepo: courseRepo,
	}
}

type InviteRequest struct {
	ExpireHours int `json:"expireHours"` // 0 表示不过期
	MaxUses     int `json:"maxUses"`     // 0 表示不限次数
}

// CreatedInvite 创建响应，Token 明文只在这里出现一次
type CreatedInvite struct {
	Invite *model.CourseInvite `json:"invite"`
	Token  string              `json:"token"`
}

func (s *InviteService) CreateInvite(actor Actor, courseID uint, req InviteRequest) (*CreatedInvite, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.TeacherID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}

	token, hash, err := util.GenerateInviteToken()
	if err != nil {
		return nil, err
	}

	invite := &model.CourseInvite{
		CourseID:  courseID,
		CreatorID: actor.UserID,
		TokenHash: hash,
		MaxUses:   req.MaxUses,
	}
	if req.ExpireHours > 0 {
		exp := time.Now().Add(time.Duration(req.ExpireHours) * time.Hour)
		invite.ExpiresAt = &exp
	}

	if err := s.InviteRepo.Create(invite); err != nil {
		return nil, err
	}
	return &CreatedInvite{Invite: invite, Token: token}, nil
}

// RedeemInvite 学生凭邀请码加入课程。名额消耗由存储层的条件自增保证，
// 最后一个名额被并发争抢时只有一个请求成功。
func (s *InviteService) RedeemInvite(actor Actor, token string) (*model.Course, error) {
	if actor.Role != model.Student {
		return nil, util.ErrPermissionDenied
	}

	invite, err := s.InviteRepo.FindByTokenHash(util.HashInviteToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInviteNotFound
		}
		return nil, err
	}
	if !invite.Usable(time.Now()) {
		return nil, util.ErrInviteUnusable
	}

	member, err := s.CourseRepo.IsMember(invite.CourseID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, util.ErrAlreadyCourseMember
	}

	redeemed, err := s.InviteRepo.Redeem(invite, &model.CourseMember{
		CourseID: invite.CourseID,
		UserID:   actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !redeemed {
		return nil, util.ErrInviteUnusable
	}

	return s.CourseRepo.FindByID(invite.CourseID)
}

func (s *InviteService) RevokeInvite(actor Actor, inviteID uint) error {
	invite, err := s.InviteRepo.FindByID(inviteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrInviteNotFound
		}
		return err
	}
	if invite.CreatorID != actor.UserID && actor.Role != model.Admin {
		return util.ErrPermissionDenied
	}
	return s.InviteRepo.Revoke(invite.ID)
}

func (s *InviteService) ListInvites(actor Actor, courseID uint) ([]model.CourseInvite, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.TeacherID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	return s.InviteRepo.ListByCourse(courseID)
}
