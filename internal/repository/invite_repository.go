package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type InviteRepository struct {
	DB *gorm.DB
}

func NewInviteRepository(db *gorm.DB) *InviteRepository {
	return &InviteRepository{DB: db}
}

func (r *InviteRepository) Create(invite *model.CourseInvite) error {
	return r.DB.Create(invite).Error
}

func (r *InviteRepository) FindByID(id uint) (*model.CourseInvite, error) {
	var invite model.CourseInvite
	err := r.DB.First(&invite, id).Error
	return &invite, err
}

func (r *InviteRepository) FindByTokenHash(hash string) (*model.CourseInvite, error) {
	var invite model.CourseInvite
	err := r.DB.Where("token_hash = ?", hash).First(&invite).Error
	return &invite, err
}

func (r *InviteRepository) ListByCourse(courseID uint) ([]model.CourseInvite, error) {
	var invites []model.CourseInvite
	err := r.DB.Where("course_id = ?", courseID).Order("created_at desc").Find(&invites).Error
	return invites, err
}

func (r *InviteRepository) Revoke(id uint) error {
	return r.DB.Model(&model.CourseInvite{}).Where("id = ?", id).Update("revoked", true).Error
}

// Redeem 在一个事务里消耗一次邀请码并写入成员记录。
// uses 的自增带 max_uses 条件，并发兑换最后一个名额时只有一个请求生效。
func (r *InviteRepository) Redeem(invite *model.CourseInvite, member *model.CourseMember) (bool, error) {
	redeemed := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CourseInvite{}).
			Where("id = ? AND revoked = ? AND (max_uses = 0 OR uses < max_uses)", invite.ID, false).
			Update("uses", gorm.Expr("uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	return redeemed, err
}
