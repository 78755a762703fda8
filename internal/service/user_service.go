package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── user module errors ──

var (
	ErrUserManageForbidden = pkgerrors.New(pkgerrors.ErrAuthorization, "your role cannot manage users")
	ErrRoleAssignForbidden = pkgerrors.New(pkgerrors.ErrAuthorization, "you cannot assign this role")
	ErrUserOutOfScope      = pkgerrors.New(pkgerrors.ErrAuthorization, "user belongs to another department")
	ErrUserSelfRoleChange  = pkgerrors.New(pkgerrors.ErrInvalidState, "you cannot change your own role")
	ErrUserSelfDelete      = pkgerrors.New(pkgerrors.ErrInvalidState, "you cannot delete your own account")
	ErrEmailExists         = pkgerrors.New(pkgerrors.ErrValidation, "email is already registered")
	ErrRoleInvalid         = pkgerrors.New(pkgerrors.ErrValidation, "unknown role")
	ErrDepartmentNotFound  = pkgerrors.New(pkgerrors.ErrValidation, "department does not exist")
	ErrClassNotInDept      = pkgerrors.New(pkgerrors.ErrValidation, "class does not belong to the department")
	ErrAcademicYearInvalid = pkgerrors.New(pkgerrors.ErrValidation, "academic_year must be between 1 and 5")
)

// UserService user administration
type UserService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.UserResponse, error)
	List(ctx context.Context, actor Actor, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	ResetPassword(ctx context.Context, actor Actor, id string) (*dto.ResetPasswordResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, actor Actor, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow one parsed spreadsheet row
type ImportUserRow struct {
	Row            int
	Name           string
	Email          string
	Role           string
	DepartmentCode string
	AcademicYear   int
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService creates a UserService
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	if !actor.Role.CanManageUsers() {
		return nil, ErrUserManageForbidden
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, ErrRoleInvalid
	}
	if !actor.Role.CanAssignRole(role) {
		return nil, ErrRoleAssignForbidden
	}

	deptID := req.DepartmentID
	if scoped(actor) {
		if deptID != nil && *deptID != actor.DepartmentID {
			return nil, ErrUserOutOfScope
		}
		deptID = &actor.DepartmentID
	}

	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		Name:               strings.TrimSpace(req.Name),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:              req.Phone,
		Role:               role,
		DepartmentID:       deptID,
		ClassID:            req.ClassID,
		AcademicYear:       req.AcademicYear,
		IsClassAdvisor:     req.IsClassAdvisor,
		MustChangePassword: true,
	}
	if err := s.checkPlacement(ctx, user); err != nil {
		return nil, err
	}

	password := req.Password
	generated := password == ""
	if generated {
		var err error
		if password, err = generateTempPassword(10); err != nil {
			s.logger.Error("generate temporary password failed", zap.Error(err))
			return nil, err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}
	user.PasswordHash = string(hash)
	user.CreatedBy = &actor.UserID
	user.UpdatedBy = &actor.UserID

	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("create user failed", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.User.GetByID(ctx, user.UserID)
	if err != nil {
		created = user
	}

	resp := &dto.CreateUserResponse{User: toUserResponse(created)}
	if generated {
		resp.TempPassword = password
	}
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, actor Actor, id string) (*dto.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != id {
		if !actor.Role.CanManageUsers() {
			return nil, ErrForbidden
		}
		if scoped(actor) && user.DepartmentIDValue() != actor.DepartmentID {
			return nil, ErrUserOutOfScope
		}
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, actor Actor, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	if !actor.Role.CanManageUsers() {
		return nil, 0, ErrUserManageForbidden
	}

	filter := repository.UserFilter{
		DepartmentID: req.DepartmentID,
		ClassID:      req.ClassID,
		Keyword:      req.Keyword,
	}
	if req.Role != "" {
		role, ok := model.ParseRole(req.Role)
		if !ok {
			return nil, 0, ErrRoleInvalid
		}
		filter.Role = role
	}
	if scoped(actor) {
		filter.DepartmentID = actor.DepartmentID
	}

	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	self := actor.UserID == id
	managing := actor.Role.CanManageUsers()
	if !self && !managing {
		return nil, ErrForbidden
	}
	if managing && !self && scoped(actor) && user.DepartmentIDValue() != actor.DepartmentID {
		return nil, ErrUserOutOfScope
	}

	// profile fields anyone may change on their own account
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	adminFields := req.Role != nil || req.DepartmentID != nil || req.ClassID != nil ||
		req.AcademicYear != nil || req.IsClassAdvisor != nil
	if adminFields {
		if !managing {
			return nil, ErrForbidden
		}
		if req.Role != nil {
			role, ok := model.ParseRole(*req.Role)
			if !ok {
				return nil, ErrRoleInvalid
			}
			if role != user.Role {
				if self {
					return nil, ErrUserSelfRoleChange
				}
				if !actor.Role.CanAssignRole(role) || !actor.Role.CanAssignRole(user.Role) {
					return nil, ErrRoleAssignForbidden
				}
				user.Role = role
			}
		}
		if req.DepartmentID != nil {
			if scoped(actor) && *req.DepartmentID != actor.DepartmentID {
				return nil, ErrUserOutOfScope
			}
			user.DepartmentID = req.DepartmentID
			user.Department = nil
		}
		if req.ClassID != nil {
			user.ClassID = req.ClassID
			user.Class = nil
		}
		if req.AcademicYear != nil {
			user.AcademicYear = *req.AcademicYear
		}
		if req.IsClassAdvisor != nil {
			user.IsClassAdvisor = *req.IsClassAdvisor
		}
		if err := s.checkPlacement(ctx, user); err != nil {
			return nil, err
		}
	}

	user.UpdatedBy = &actor.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("update user failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		updated = user
	}
	return toUserResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Role.CanManageUsers() {
		return ErrUserManageForbidden
	}
	if id == actor.UserID {
		return ErrUserSelfDelete
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkScope(actor, user); err != nil {
		return err
	}

	if err := s.repo.User.Delete(ctx, id, actor.UserID); err != nil {
		s.logger.Error("delete user failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, actor Actor, id string) (*dto.ResetPasswordResponse, error) {
	if !actor.Role.CanManageUsers() {
		return nil, ErrUserManageForbidden
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(actor, user); err != nil {
		return nil, err
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("generate temporary password failed", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	user.UpdatedBy = &actor.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("reset password failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = pkgerrors.New(pkgerrors.ErrValidation, "spreadsheet has no data rows (the first row is the header)")
	ErrImportTooManyRows = pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("spreadsheet exceeds %d rows", maxImportRows))
	ErrImportBadHeader   = pkgerrors.New(pkgerrors.ErrValidation, "spreadsheet header must contain name, email and department columns")
	ErrImportUnreadable  = pkgerrors.New(pkgerrors.ErrValidation, "file is not a readable xlsx spreadsheet")
)

// ParseImportFile reads the first sheet of an xlsx upload
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 || colIndex["email"] < 0 || colIndex["department"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{
			Row:            i + 1,
			Name:           cellAt(row, "name"),
			Email:          cellAt(row, "email"),
			Role:           cellAt(row, "role"),
			DepartmentCode: cellAt(row, "department"),
		}
		if year := cellAt(row, "academic_year"); year != "" {
			n, err := strconv.Atoi(year)
			if err != nil || n == 0 {
				n = -1 // rejected by row validation
			}
			item.AcademicYear = n
		}

		if item.Name == "" && item.Email == "" && item.DepartmentCode == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex column name → index, -1 when missing
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"name":          -1,
		"email":         -1,
		"role":          -1,
		"department":    -1,
		"academic_year": -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "full name":
			idx["name"] = i
		case "email", "e-mail":
			idx["email"] = i
		case "role":
			idx["role"] = i
		case "department", "department code", "dept":
			idx["department"] = i
		case "academic_year", "academic year", "year":
			idx["academic_year"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

// ImportUsers validates every row first, then creates the valid ones in
// one transaction. A write failure rolls back the whole batch.
func (s *userService) ImportUsers(ctx context.Context, actor Actor, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	if !actor.Role.CanManageUsers() {
		return nil, ErrUserManageForbidden
	}
	resp := &dto.ImportUserResponse{Total: len(rows)}

	deptByCode, err := s.buildDepartmentMap(ctx)
	if err != nil {
		s.logger.Error("load departments failed", zap.Error(err))
		return nil, err
	}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	type validatedRow struct {
		row      ImportUserRow
		user     *model.User
		password string
	}
	var valid []validatedRow
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		email := strings.ToLower(row.Email)
		if row.Name == "" || email == "" || row.DepartmentCode == "" {
			fail(row.Row, "name, email and department are required")
			continue
		}
		if seen[email] {
			fail(row.Row, "duplicate email in file: "+email)
			continue
		}
		seen[email] = true

		role := model.RoleStudent
		if row.Role != "" {
			r, ok := model.ParseRole(strings.ToLower(row.Role))
			if !ok {
				fail(row.Row, "unknown role: "+row.Role)
				continue
			}
			role = r
		}
		if !actor.Role.CanAssignRole(role) {
			fail(row.Row, "role not assignable: "+string(role))
			continue
		}

		dept, ok := deptByCode[strings.ToUpper(row.DepartmentCode)]
		if !ok {
			fail(row.Row, "unknown department: "+row.DepartmentCode)
			continue
		}
		if scoped(actor) && dept.DepartmentID != actor.DepartmentID {
			fail(row.Row, "department outside your scope: "+row.DepartmentCode)
			continue
		}
		if row.AcademicYear < 0 || row.AcademicYear > 5 {
			fail(row.Row, "academic_year must be between 1 and 5")
			continue
		}

		if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
			fail(row.Row, "email already registered: "+email)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		password, err := generateTempPassword(10)
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "password hashing failed")
			continue
		}

		deptID := dept.DepartmentID
		valid = append(valid, validatedRow{
			row: row,
			user: &model.User{
				Name:               row.Name,
				Email:              email,
				PasswordHash:       string(hash),
				Role:               role,
				DepartmentID:       &deptID,
				AcademicYear:       row.AcademicYear,
				MustChangePassword: true,
			},
			password: password,
		})
	}

	if len(valid) == 0 {
		return resp, nil
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, vr := range valid {
			vr.user.CreatedBy = &actor.UserID
			if err := txRepo.User.Create(ctx, vr.user); err != nil {
				s.logger.Error("import row failed, rolling back", zap.Int("row", vr.row.Row), zap.Error(err))
				return fmt.Errorf("row %d could not be written, import rolled back: %w", vr.row.Row, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Success = len(valid)
	for _, vr := range valid {
		resp.Credentials = append(resp.Credentials, dto.ImportCredential{Email: vr.user.Email, TempPassword: vr.password})
	}
	s.logger.Info("users imported", zap.Int("success", resp.Success), zap.Int("failed", resp.Failed))
	return resp, nil
}

// ── helpers ──

func (s *userService) get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("get user failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// checkScope department-scoped managers act on their own department only
// and never on roles they could not assign
func (s *userService) checkScope(actor Actor, user *model.User) error {
	if scoped(actor) && user.DepartmentIDValue() != actor.DepartmentID {
		return ErrUserOutOfScope
	}
	if !actor.Role.CanAssignRole(user.Role) {
		return ErrRoleAssignForbidden
	}
	return nil
}

// checkPlacement department, class and academic year are consistent
func (s *userService) checkPlacement(ctx context.Context, user *model.User) error {
	if user.AcademicYear < 0 || user.AcademicYear > 5 {
		return ErrAcademicYearInvalid
	}
	if user.DepartmentID != nil {
		if _, err := s.repo.Department.GetByID(ctx, *user.DepartmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDepartmentNotFound
			}
			return err
		}
	}
	if user.ClassID != nil {
		class, err := s.repo.Class.GetByID(ctx, *user.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		if user.DepartmentID == nil || class.DepartmentID != *user.DepartmentID {
			return ErrClassNotInDept
		}
		if user.Role == model.RoleStudent && user.AcademicYear == 0 {
			user.AcademicYear = class.AcademicYear
		}
	}
	return nil
}

// buildDepartmentMap upper-cased department code → department
func (s *userService) buildDepartmentMap(ctx context.Context) (map[string]*model.Department, error) {
	departments, err := s.repo.Department.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.Department, len(departments))
	for i := range departments {
		m[strings.ToUpper(departments[i].Code)] = &departments[i]
	}
	return m, nil
}

// scoped whether the actor only manages its own department
func scoped(actor Actor) bool {
	return actor.Role == model.RoleHOD
}

// generateTempPassword random password with at least one letter and one digit
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 8 {
		length = 8
	}

	result := make([]byte, length)

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
	if err != nil {
		return "", err
	}
	result[0] = letters[n.Int64()]

	n, err = rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
	if err != nil {
		return "", err
	}
	result[1] = digits[n.Int64()]

	for i := 2; i < length; i++ {
		n, err = rand.Int(rand.Reader, big.NewInt(int64(len(all))))
		if err != nil {
			return "", err
		}
		result[i] = all[n.Int64()]
	}

	// Fisher-Yates
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}
