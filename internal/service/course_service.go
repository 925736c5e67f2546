package service

import (
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
}

func NewCourseService(courseRepo *repository.CourseRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo}
}

type CourseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *CourseService) CreateCourse(actor Actor, req CourseRequest) (*model.Course, error) {
	if !actor.Moderator() {
		return nil, util.ErrPermissionDenied
	}
	course := &model.Course{
		Name:        req.Name,
		Description: req.Description,
		TeacherID:   actor.UserID,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(actor Actor, courseID uint, req CourseRequest) (*model.Course, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	course.Name = req.Name
	course.Description = req.Description
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

// ListCourses 教师看自己开的课，学生看已加入的课
func (s *CourseService) ListCourses(actor Actor, page, limit int) ([]model.Course, int64, error) {
	if actor.Moderator() {
		return s.CourseRepo.ListByTeacher(actor.UserID, page, limit)
	}
	return s.CourseRepo.ListByMember(actor.UserID, page, limit)
}

func (s *CourseService) GetCourse(actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireAccess(actor, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ListMembers(actor Actor, courseID uint) ([]model.CourseMember, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	return s.CourseRepo.ListMembers(courseID)
}

// RequireAccess 课程任课教师、管理员或课程成员可访问
func (s *CourseService) RequireAccess(actor Actor, course *model.Course) error {
	if actor.Role == model.Admin || course.TeacherID == actor.UserID {
		return nil
	}
	ok, err := s.CourseRepo.IsMember(course.ID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotCourseMember
	}
	return nil
}

func (s *CourseService) findCourse(courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}
