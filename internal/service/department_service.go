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

// ── department module errors ──

var (
	ErrDepartmentNotExist        = pkgerrors.New(pkgerrors.ErrNotFound, "department not found")
	ErrDepartmentManageForbidden = pkgerrors.New(pkgerrors.ErrAuthorization, "your role cannot manage departments")
	ErrDepartmentCodeExists      = pkgerrors.New(pkgerrors.ErrValidation, "department code already exists")
	ErrDepartmentHODInvalid      = pkgerrors.New(pkgerrors.ErrValidation, "head of department must be an existing hod user")
	ErrDepartmentHasMembers      = pkgerrors.New(pkgerrors.ErrInvalidState, "department still has members")
)

// DepartmentService department reference data
type DepartmentService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateDepartmentRequest) (*dto.DepartmentDetailResponse, error)
	GetByID(ctx context.Context, id string) (*dto.DepartmentDetailResponse, error)
	List(ctx context.Context, req *dto.DepartmentListRequest) ([]dto.DepartmentDetailResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateDepartmentRequest) (*dto.DepartmentDetailResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type departmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDepartmentService creates a DepartmentService
func NewDepartmentService(repo *repository.Repository, logger *zap.Logger) DepartmentService {
	return &departmentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *departmentService) Create(ctx context.Context, actor Actor, req *dto.CreateDepartmentRequest) (*dto.DepartmentDetailResponse, error) {
	if !actor.Role.CanManageDepartments() {
		return nil, ErrDepartmentManageForbidden
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	existing, err := s.repo.Department.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("look up department failed", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		return nil, ErrDepartmentCodeExists
	}

	if err := s.checkHOD(ctx, req.HODID); err != nil {
		return nil, err
	}

	dept := &model.Department{
		Name:        strings.TrimSpace(req.Name),
		Code:        code,
		Description: req.Description,
		HODID:       req.HODID,
		IsActive:    true,
	}
	dept.CreatedBy = &actor.UserID
	dept.UpdatedBy = &actor.UserID

	if err := s.repo.Department.Create(ctx, dept); err != nil {
		s.logger.Error("create department failed", zap.Error(err))
		return nil, err
	}

	return s.toDepartmentDetailResponse(ctx, dept), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *departmentService) GetByID(ctx context.Context, id string) (*dto.DepartmentDetailResponse, error) {
	dept, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDepartmentDetailResponse(ctx, dept), nil
}

// ────────────────────── List ──────────────────────

func (s *departmentService) List(ctx context.Context, req *dto.DepartmentListRequest) ([]dto.DepartmentDetailResponse, error) {
	var (
		depts []model.Department
		err   error
	)
	if req.IncludeInactive {
		depts, err = s.repo.Department.ListAll(ctx)
	} else {
		depts, err = s.repo.Department.List(ctx)
	}
	if err != nil {
		s.logger.Error("list departments failed", zap.Error(err))
		return nil, err
	}

	deptIDs := make([]string, 0, len(depts))
	for _, d := range depts {
		deptIDs = append(deptIDs, d.DepartmentID)
	}
	countMap, err := s.repo.Department.BatchCountMembers(ctx, deptIDs)
	if err != nil {
		s.logger.Warn("count department members failed, reporting 0", zap.Error(err))
		countMap = make(map[string]int64)
	}

	result := make([]dto.DepartmentDetailResponse, 0, len(depts))
	for i := range depts {
		result = append(result, *toDepartmentDetail(&depts[i], countMap[depts[i].DepartmentID]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *departmentService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateDepartmentRequest) (*dto.DepartmentDetailResponse, error) {
	if !actor.Role.CanManageDepartments() {
		return nil, ErrDepartmentManageForbidden
	}
	dept, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		dept.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.HODID != nil {
		if err := s.checkHOD(ctx, req.HODID); err != nil {
			return nil, err
		}
		dept.HODID = req.HODID
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}
	dept.UpdatedBy = &actor.UserID

	if err := s.repo.Department.Update(ctx, dept); err != nil {
		s.logger.Error("update department failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toDepartmentDetailResponse(ctx, dept), nil
}

// ────────────────────── Delete ──────────────────────

func (s *departmentService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Role.CanManageDepartments() {
		return ErrDepartmentManageForbidden
	}
	dept, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.repo.Department.CountMembers(ctx, dept.DepartmentID)
	if err != nil {
		s.logger.Error("count department members failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrDepartmentHasMembers
	}

	if err := s.repo.Department.Delete(ctx, id, actor.UserID); err != nil {
		s.logger.Error("delete department failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── helpers ──

func (s *departmentService) get(ctx context.Context, id string) (*model.Department, error) {
	dept, err := s.repo.Department.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotExist
		}
		s.logger.Error("get department failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return dept, nil
}

func (s *departmentService) checkHOD(ctx context.Context, hodID *string) error {
	if hodID == nil {
		return nil
	}
	user, err := s.repo.User.GetByID(ctx, *hodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDepartmentHODInvalid
		}
		return err
	}
	if user.Role != model.RoleHOD {
		return ErrDepartmentHODInvalid
	}
	return nil
}

func (s *departmentService) toDepartmentDetailResponse(ctx context.Context, dept *model.Department) *dto.DepartmentDetailResponse {
	memberCount, _ := s.repo.Department.CountMembers(ctx, dept.DepartmentID)
	return toDepartmentDetail(dept, memberCount)
}

func toDepartmentDetail(dept *model.Department, memberCount int64) *dto.DepartmentDetailResponse {
	return &dto.DepartmentDetailResponse{
		ID:          dept.DepartmentID,
		Name:        dept.Name,
		Code:        dept.Code,
		Description: dept.Description,
		HODID:       dept.HODID,
		IsActive:    dept.IsActive,
		MemberCount: memberCount,
		CreatedAt:   dept.CreatedAt.Format(timeLayout),
		UpdatedAt:   dept.UpdatedAt.Format(timeLayout),
	}
}
