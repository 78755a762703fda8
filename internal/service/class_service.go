package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

var (
	ErrClassNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "class not found")
	ErrClassManageForbidden = pkgerrors.New(pkgerrors.ErrAuthorization, "your role cannot manage classes")
	ErrClassAdvisorInvalid  = pkgerrors.New(pkgerrors.ErrValidation, "advisor must be staff or hod of the same department")
	ErrClassHasStudents     = pkgerrors.New(pkgerrors.ErrInvalidState, "class still has students")
)

// ClassService class reference data
type ClassService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateClassRequest) (*dto.ClassResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ClassResponse, error)
	List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type classService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewClassService creates a ClassService
func NewClassService(repo *repository.Repository, logger *zap.Logger) ClassService {
	return &classService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *classService) Create(ctx context.Context, actor Actor, req *dto.CreateClassRequest) (*dto.ClassResponse, error) {
	if err := s.checkManage(actor, req.DepartmentID); err != nil {
		return nil, err
	}
	if _, err := s.repo.Department.GetByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		s.logger.Error("get department failed", zap.Error(err))
		return nil, err
	}
	if err := s.checkAdvisor(ctx, req.AdvisorID, req.DepartmentID); err != nil {
		return nil, err
	}

	class := &model.Class{
		DepartmentID: req.DepartmentID,
		Name:         strings.TrimSpace(req.Name),
		AcademicYear: req.AcademicYear,
		AdvisorID:    req.AdvisorID,
	}
	class.CreatedBy = &actor.UserID
	class.UpdatedBy = &actor.UserID

	if err := s.repo.Class.Create(ctx, class); err != nil {
		s.logger.Error("create class failed", zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, class.ClassID)
}

// ────────────────────── GetByID / List ──────────────────────

func (s *classService) GetByID(ctx context.Context, id string) (*dto.ClassResponse, error) {
	class, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.Class.CountStudents(ctx, id)
	if err != nil {
		s.logger.Warn("count class students failed", zap.String("id", id), zap.Error(err))
	}
	return toClassResponse(class, count), nil
}

func (s *classService) List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, error) {
	classes, err := s.repo.Class.List(ctx, req.DepartmentID)
	if err != nil {
		s.logger.Error("list classes failed", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, *toClassResponse(&classes[i], 0))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *classService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error) {
	class, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkManage(actor, class.DepartmentID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.AcademicYear != nil {
		class.AcademicYear = *req.AcademicYear
	}
	if req.AdvisorID != nil {
		if err := s.checkAdvisor(ctx, req.AdvisorID, class.DepartmentID); err != nil {
			return nil, err
		}
		class.AdvisorID = req.AdvisorID
		class.Advisor = nil
	}
	class.UpdatedBy = &actor.UserID

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("update class failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *classService) Delete(ctx context.Context, actor Actor, id string) error {
	class, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkManage(actor, class.DepartmentID); err != nil {
		return err
	}

	count, err := s.repo.Class.CountStudents(ctx, id)
	if err != nil {
		s.logger.Error("count class students failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrClassHasStudents
	}

	if err := s.repo.Class.Delete(ctx, id, actor.UserID); err != nil {
		s.logger.Error("delete class failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── helpers ──

func (s *classService) get(ctx context.Context, id string) (*model.Class, error) {
	class, err := s.repo.Class.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("get class failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return class, nil
}

// checkManage a hod manages the classes of its own department only
func (s *classService) checkManage(actor Actor, departmentID string) error {
	if !actor.Role.CanManageClasses() {
		return ErrClassManageForbidden
	}
	if scoped(actor) && departmentID != actor.DepartmentID {
		return ErrForbidden
	}
	return nil
}

func (s *classService) checkAdvisor(ctx context.Context, advisorID *string, departmentID string) error {
	if advisorID == nil {
		return nil
	}
	advisor, err := s.repo.User.GetByID(ctx, *advisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassAdvisorInvalid
		}
		return err
	}
	if !advisor.Role.CanMentor() || advisor.DepartmentIDValue() != departmentID {
		return ErrClassAdvisorInvalid
	}
	return nil
}

func toClassResponse(class *model.Class, studentCount int64) *dto.ClassResponse {
	resp := &dto.ClassResponse{
		ID:           class.ClassID,
		DepartmentID: class.DepartmentID,
		Name:         class.Name,
		AcademicYear: class.AcademicYear,
		StudentCount: studentCount,
	}
	if class.Advisor != nil {
		brief := toUserBrief(class.Advisor)
		resp.Advisor = &brief
	}
	return resp
}
