package model

import "time"

// CourseInvite 课程邀请码，明文 token 只在创建时返回一次，库中仅保存摘要
type CourseInvite struct {
	BaseModel
	CourseID  uint       `gorm:"index" json:"courseId"`
	CreatorID uint       `gorm:"index" json:"creatorId"`
	TokenHash string     `gorm:"size:64;uniqueIndex" json:"-"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	MaxUses   int        `gorm:"default:0" json:"maxUses"` // 0 表示不限次数
	Uses      int        `gorm:"default:0" json:"uses"`
	Revoked   bool       `gorm:"default:false" json:"revoked"`
}

func (CourseInvite) TableName() string {
	return "course_invites"
}

// Usable reports whether the invite can still be redeemed at the given time.
func (i *CourseInvite) Usable(now time.Time) bool {
	if i.Revoked {
		return false
	}
	if i.ExpiresAt != nil && now.After(*i.ExpiresAt) {
		return false
	}
	if i.MaxUses > 0 && i.Uses >= i.MaxUses {
		return false
	}
	return true
}
