package repository

import (
	"context"
	"fmt"
	"time"

	"lms_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const onlineTTL = 2 * time.Minute

type ChatRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewChatRepository(db *gorm.DB, rdb *redis.Client) *ChatRepository {
	return &ChatRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func (r *ChatRepository) CreateRoom(room *model.ChatRoom) error {
	return r.DB.Create(room).Error
}

func (r *ChatRepository) FindRoom(id string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.DB.First(&room, "id = ?", id).Error
	return &room, err
}

func (r *ChatRepository) ListRoomsByCourse(courseID uint) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	err := r.DB.Where("course_id = ?", courseID).Order("created_at asc").Find(&rooms).Error
	return rooms, err
}

func (r *ChatRepository) CreateMessage(msg *model.ChatMessage) error {
	return r.DB.Create(msg).Error
}

// ListMessagesBefore 按 (room_id, created_at) 倒序翻页，beforeID 为空取最新一页
func (r *ChatRepository) ListMessagesBefore(roomID, beforeID string, limit int) ([]model.ChatMessage, error) {
	query := r.DB.Preload("Sender").Where("room_id = ?", roomID)

	if beforeID != "" {
		var cursor model.ChatMessage
		if err := r.DB.Select("created_at").First(&cursor, "id = ?", beforeID).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at < ?", cursor.CreatedAt)
	}

	var msgs []model.ChatMessage
	err := query.Order("created_at desc").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// SetOnline 在线状态带 TTL，断连后自动过期
func (r *ChatRepository) SetOnline(userID uint) {
	if r.Redis == nil {
		return
	}
	r.Redis.Set(r.ctx, fmt.Sprintf("chat:online:%d", userID), 1, onlineTTL)
}

func (r *ChatRepository) RefreshOnline(userID uint) {
	if r.Redis == nil {
		return
	}
	r.Redis.Expire(r.ctx, fmt.Sprintf("chat:online:%d", userID), onlineTTL)
}

func (r *ChatRepository) SetOffline(userID uint) {
	if r.Redis == nil {
		return
	}
	r.Redis.Del(r.ctx, fmt.Sprintf("chat:online:%d", userID))
}

func (r *ChatRepository) IsOnline(userID uint) bool {
	if r.Redis == nil {
		return false
	}
	n, err := r.Redis.Exists(r.ctx, fmt.Sprintf("chat:online:%d", userID)).Result()
	return err == nil && n > 0
}
