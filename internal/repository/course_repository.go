package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Teacher").First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListByTeacher(teacherID uint, page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64
	query := r.DB.Model(&model.Course{}).Where("teacher_id = ?", teacherID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

// ListByMember 返回学生已加入的课程
func (r *CourseRepository) ListByMember(userID uint, page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64
	query := r.DB.Model(&model.Course{}).
		Joins("JOIN course_members ON course_members.course_id = courses.id").
		Where("course_members.user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("courses.created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) AddMember(member *model.CourseMember) error {
	return r.DB.Create(member).Error
}

func (r *CourseRepository) IsMember(courseID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.CourseMember{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) ListMembers(courseID uint) ([]model.CourseMember, error) {
	var members []model.CourseMember
	err := r.DB.Preload("User").Where("course_id = ?", courseID).Order("joined_at asc").Find(&members).Error
	return members, err
}
