package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saasbackend/internal/model"
	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"
	"saasbackend/internal/token"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginUserRequest struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required"`
	TenantID *uuid.UUID `json:"tenant_id"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserType    string `json:"user_type"`
	Role        string `json:"role"`
}

type MeResponse struct {
	SubjectID string          `json:"user_id"`
	UserType  string          `json:"user_type"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	TenantID  *string         `json:"tenant_id"`
	Matrix    *MatrixResponse `json:"access_matrix"`
}

// --- Interface ---

type AuthService interface {
	LoginAdmin(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	LoginTenant(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	LoginUser(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	// EnsureDefaultAdmin creates the platform admin account if no admin with
	// that email exists yet. It reports whether one was created.
	EnsureDefaultAdmin(ctx context.Context, email, password, name string) (bool, error)
	Me(ctx context.Context, p rbac.Principal) (*MeResponse, error)
}

type authService struct {
	admins  repository.AdminRepository
	tenants repository.TenantRepository
	users   repository.UserRepository
	codec   *token.Codec
	engine  *rbac.Engine
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewAuthService(
	admins repository.AdminRepository,
	tenants repository.TenantRepository,
	users repository.UserRepository,
	codec *token.Codec,
	engine *rbac.Engine,
	log logrus.FieldLogger,
) AuthService {
	return &authService{
		admins:  admins,
		tenants: tenants,
		users:   users,
		codec:   codec,
		engine:  engine,
		log:     log,
		now:     time.Now,
	}
}

// --- Implementation ---

func (s *authService) LoginAdmin(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err := credentialLookupError(err); err != nil {
		return nil, err
	}
	if !admin.IsActive || !passwordMatches(admin.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(token.Subject{
		ID:    admin.ID.String(),
		Kind:  token.KindPlatformAdmin,
		Email: admin.Email,
		Role:  string(rbac.RoleSuperAdmin),
	})
}

func (s *authService) LoginTenant(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	tenant, err := s.tenants.GetByAdminEmail(ctx, req.Email)
	if err := credentialLookupError(err); err != nil {
		return nil, err
	}
	if !tenant.IsActive || !passwordMatches(tenant.AdminPassword, req.Password) {
		return nil, ErrInvalidCredentials
	}

	tenantID := tenant.ID
	return s.issue(token.Subject{
		ID:       tenant.ID.String(),
		Kind:     token.KindTenantOwner,
		Email:    tenant.AdminEmail,
		TenantID: &tenantID,
		Role:     string(rbac.RoleTenantAdmin),
	})
}

func (s *authService) LoginUser(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.users.FindActiveByEmail(ctx, req.Email, req.TenantID)
	if err := credentialLookupError(err); err != nil {
		return nil, err
	}
	if !passwordMatches(user.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}

	tenantID := user.TenantID
	return s.issue(token.Subject{
		ID:       user.ID.String(),
		Kind:     token.KindEndPrincipal,
		Email:    user.Email,
		TenantID: &tenantID,
		Role:     string(rbac.MapRawRole(user.Role)),
	})
}

func (s *authService) EnsureDefaultAdmin(ctx context.Context, email, password, name string) (bool, error) {
	_, err := s.admins.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up default admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, errors.New("failed to hash password")
	}
	admin := &model.Admin{
		Email:    email,
		Name:     name,
		Password: string(hashed),
		IsActive: true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create default admin: %w", err)
	}
	s.log.WithField("email", email).Info("default admin created")
	return true, nil
}

func (s *authService) Me(ctx context.Context, p rbac.Principal) (*MeResponse, error) {
	resp := &MeResponse{
		SubjectID: p.SubjectID,
		UserType:  string(p.Kind),
		Email:     p.Email,
		Role:      string(p.Role),
	}
	if p.TenantID != nil {
		id := p.TenantID.String()
		resp.TenantID = &id
	}
	if p.Role.Bypass() {
		return resp, nil
	}

	entry, err := s.engine.EffectiveEntry(ctx, p.Role, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access matrix: %w", err)
	}
	if entry != nil {
		m := toMatrixResponse(*entry)
		resp.Matrix = &m
	}
	return resp, nil
}

// --- Helpers ---

func (s *authService) issue(sub token.Subject) (*TokenResponse, error) {
	signed, err := s.codec.Issue(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.codec.TTL().Seconds()),
		UserType:    string(sub.Kind),
		Role:        sub.Role,
	}, nil
}

// credentialLookupError folds "no such account" into ErrInvalidCredentials.
func credentialLookupError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCredentials
	}
	return fmt.Errorf("failed to look up account: %w", err)
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
