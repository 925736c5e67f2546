package service

import (
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvite(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{MaxUses: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)
	// 库中只存摘要，明文 token 不落库
	assert.NotEqual(t, created.Token, created.Invite.TokenHash)
	assert.Equal(t, util.HashInviteToken(created.Token), created.Invite.TokenHash)
	assert.Equal(t, 5, created.Invite.MaxUses)
}

func TestCreateInviteStudentForbidden(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inviteSvc.CreateInvite(env.actor(env.student), env.course.ID, InviteRequest{})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestRedeemInvite(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{})
	require.NoError(t, err)

	newbie := env.createUser(t, "newbie@example.com", model.Student)
	course, err := env.inviteSvc.RedeemInvite(env.actor(newbie), created.Token)
	require.NoError(t, err)
	assert.Equal(t, env.course.ID, course.ID)

	// 加入后可以访问课程
	_, err = env.courseSvc.GetCourse(env.actor(newbie), env.course.ID)
	assert.NoError(t, err)

	// 再次兑换报已是成员
	_, err = env.inviteSvc.RedeemInvite(env.actor(newbie), created.Token)
	assert.ErrorIs(t, err, util.ErrAlreadyCourseMember)
}

func TestRedeemInviteUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	newbie := env.createUser(t, "newbie@example.com", model.Student)
	_, err := env.inviteSvc.RedeemInvite(env.actor(newbie), "no-such-token")
	assert.ErrorIs(t, err, util.ErrInviteNotFound)
}

func TestRedeemInviteTeacherForbidden(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{})
	require.NoError(t, err)

	_, err = env.inviteSvc.RedeemInvite(env.actor(env.teacher), created.Token)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestRedeemInviteMaxUses(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{MaxUses: 1})
	require.NoError(t, err)

	first := env.createUser(t, "first@example.com", model.Student)
	_, err = env.inviteSvc.RedeemInvite(env.actor(first), created.Token)
	require.NoError(t, err)

	second := env.createUser(t, "second@example.com", model.Student)
	_, err = env.inviteSvc.RedeemInvite(env.actor(second), created.Token)
	assert.ErrorIs(t, err, util.ErrInviteUnusable)
}

func TestRedeemInviteExpired(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{ExpireHours: 1})
	require.NoError(t, err)

	// 直接把过期时间拨回过去
	past := time.Now().Add(-time.Minute)
	require.NoError(t, env.db.Model(created.Invite).Update("expires_at", past).Error)

	newbie := env.createUser(t, "newbie@example.com", model.Student)
	_, err = env.inviteSvc.RedeemInvite(env.actor(newbie), created.Token)
	assert.ErrorIs(t, err, util.ErrInviteUnusable)
}

func TestRevokeInvite(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{})
	require.NoError(t, err)

	other := env.createUser(t, "other-teacher@example.com", model.Teacher)
	err = env.inviteSvc.RevokeInvite(env.actor(other), created.Invite.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	require.NoError(t, env.inviteSvc.RevokeInvite(env.actor(env.teacher), created.Invite.ID))

	newbie := env.createUser(t, "newbie@example.com", model.Student)
	_, err = env.inviteSvc.RedeemInvite(env.actor(newbie), created.Token)
	assert.ErrorIs(t, err, util.ErrInviteUnusable)
}

func TestListInvites(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{})
	require.NoError(t, err)
	_, err = env.inviteSvc.CreateInvite(env.actor(env.teacher), env.course.ID, InviteRequest{MaxUses: 3})
	require.NoError(t, err)

	invites, err := env.inviteSvc.ListInvites(env.actor(env.teacher), env.course.ID)
	require.NoError(t, err)
	assert.Len(t, invites, 2)

	_, err = env.inviteSvc.ListInvites(env.actor(env.student), env.course.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
