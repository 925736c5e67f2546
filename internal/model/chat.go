package model

import "time"

// ChatRoom 课程讨论房间，成员关系复用课程成员表
type ChatRoom struct {
	UUIDBase
	CourseID  uint   `gorm:"index" json:"courseId"`
	Name      string `gorm:"size:100" json:"name"`
	CreatorID uint   `gorm:"index" json:"creatorId"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// ChatMessage 消息记录
type ChatMessage struct {
	UUIDBase
	RoomID    string    `gorm:"index;index:idx_room_created;type:varchar(36);not null" json:"roomId"`
	CreatedAt time.Time `gorm:"index:idx_room_created" json:"createdAt"` // 历史消息按 (room_id, created_at) 查询
	SenderID  *uint     `gorm:"index" json:"senderId"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Type      string    `gorm:"size:20;default:'text'" json:"type"` // text | system
	Content   string    `gorm:"type:text" json:"content"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
