package service

import (
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

const defaultHistoryPage = 50

type ChatService struct {
	ChatRepo   *repository.ChatRepository
	CourseRepo *repository.CourseRepository
	CourseSvc  *CourseService
}

func NewChatService(chatRepo *repository.ChatRepository, courseRepo *repository.CourseRepository, courseSvc *CourseService) *ChatService {
	return &ChatService{
		ChatRepo:   chatRepo,
		CourseRepo: courseRepo,
		CourseSvc:  courseSvc,
	}
}

func (s *ChatService) CreateRoom(actor Actor, courseID uint, name string) (*model.ChatRoom, error) {
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

	room := &model.ChatRoom{
		CourseID:  courseID,
		Name:      name,
		CreatorID: actor.UserID,
	}
	if err := s.ChatRepo.CreateRoom(room); err != nil {
		return nil, err
	}

	s.CreateSystemMessage(room.ID, "讨论区已创建")
	return room, nil
}

func (s *ChatService) ListRooms(actor Actor, courseID uint) ([]model.ChatRoom, error) {
	if err := s.requireRoomAccessByCourse(actor, courseID); err != nil {
		return nil, err
	}
	return s.ChatRepo.ListRoomsByCourse(courseID)
}

func (s *ChatService) CreateSystemMessage(roomID, content string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		RoomID:   roomID,
		SenderID: nil, // 系统消息 SenderID 为 nil
		Type:     "system",
		Content:  content,
	}
	err := s.ChatRepo.CreateMessage(msg)
	return msg, err
}

func (s *ChatService) PostMessage(actor Actor, roomID, content string) (*model.ChatMessage, error) {
	room, err := s.findRoom(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRoomAccessByCourse(actor, room.CourseID); err != nil {
		return nil, err
	}

	senderID := actor.UserID
	msg := &model.ChatMessage{
		RoomID:   roomID,
		SenderID: &senderID,
		Type:     "text",
		Content:  content,
	}
	if err := s.ChatRepo.CreateMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History 以 beforeID 为游标向前翻页，返回按时间倒序的一页消息
func (s *ChatService) History(actor Actor, roomID, beforeID string, limit int) ([]model.ChatMessage, error) {
	room, err := s.findRoom(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRoomAccessByCourse(actor, room.CourseID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > defaultHistoryPage {
		limit = defaultHistoryPage
	}
	return s.ChatRepo.ListMessagesBefore(roomID, beforeID, limit)
}

// RequireRoomAccess 校验 actor 可进入房间，供 WebSocket 握手前调用
func (s *ChatService) RequireRoomAccess(actor Actor, roomID string) (*model.ChatRoom, error) {
	room, err := s.findRoom(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRoomAccessByCourse(actor, room.CourseID); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *ChatService) findRoom(roomID string) (*model.ChatRoom, error) {
	room, err := s.ChatRepo.FindRoom(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *ChatService) requireRoomAccessByCourse(actor Actor, courseID uint) error {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return err
	}
	return s.CourseSvc.RequireAccess(actor, course)
}
