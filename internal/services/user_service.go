package services

import (
	"context"
	"fmt"
	"log"

	"agrismart/internal/models"
	"agrismart/internal/repository"
	"agrismart/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type IUserService interface {
	Register(name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string, deviceInfo, ipAddress *string) (*models.User, *models.UserSession, string, error)
	Logout(ctx context.Context, userID string) error
	ValidateSession(ctx context.Context, userID, token string) (bool, error)
	GetProfile(userID string) (*models.User, error)
	UpdateProfile(userID string, req *models.UpdateProfileRequest) (*models.User, error)
	DeleteProfile(userID string) error
	GetAllUsers(limit, offset int) ([]*models.User, error)
	DeactivateUser(userID string) error
	ChangeUserRole(userID, role string) error
	GetAnalytics(ctx context.Context) (*Analytics, error)
}

type Analytics struct {
	UserCount     int `json:"userCount"`
	CropsCount    int `json:"cropsCount"`
	AnalysesCount int `json:"analysesCount"`
}

type UserService struct {
	userRepo     repository.IUserRepository
	cropRepo     repository.ICropRepository
	analysisRepo repository.IAnalysisRepository
	sessionRepo  repository.SessionRepository
	jwtService   *JWTService
}

func NewUserService(
	userRepo repository.IUserRepository,
	cropRepo repository.ICropRepository,
	analysisRepo repository.IAnalysisRepository,
	sessionRepo repository.SessionRepository,
	jwtService *JWTService,
) IUserService {
	return &UserService{
		userRepo:     userRepo,
		cropRepo:     cropRepo,
		analysisRepo: analysisRepo,
		sessionRepo:  sessionRepo,
		jwtService:   jwtService,
	}
}

func (s *UserService) Register(name, email, password string) (*models.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("email, password and name are required")
	}
	if ok, err := utils.ValidateEmail(email); !ok {
		return nil, err
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if existing, _ := s.userRepo.GetUserByEmail(email); existing != nil {
		return nil, fmt.Errorf("email already registered")
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: password,
		Role:         models.RoleFarmer,
		Active:       true,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string, deviceInfo, ipAddress *string) (*models.User, *models.UserSession, string, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, "", fmt.Errorf("invalid credentials")
	}
	if !user.Active {
		return nil, nil, "", fmt.Errorf("account deactivated")
	}
	if !s.userRepo.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, "", fmt.Errorf("invalid credentials")
	}

	token, err := s.jwtService.GenerateNewToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, nil, "", err
	}

	session := &models.UserSession{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		TokenHash:  token,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, nil, "", err
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		// Non-fatal; the login itself succeeded.
		log.Printf("failed to update last login for %s: %v", user.ID, err)
	}

	user.PasswordHash = ""
	return user, session, token, nil
}

func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.sessionRepo.DeleteUserSessions(ctx, userID)
}

// ValidateSession checks the bearer token against the user's live sessions.
func (s *UserService) ValidateSession(ctx context.Context, userID, token string) (bool, error) {
	sessions, err := s.sessionRepo.GetUserSessions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, session := range sessions {
		if session.TokenHash == token && session.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserService) GetProfile(userID string) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) UpdateProfile(userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Location != nil {
		user.Location = req.Location
	}

	if err := s.userRepo.UpdateUser(user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) DeleteProfile(userID string) error {
	return s.userRepo.DeleteUser(userID)
}

func (s *UserService) GetAllUsers(limit, offset int) ([]*models.User, error) {
	users, err := s.userRepo.GetAllUsers(limit, offset)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}

func (s *UserService) DeactivateUser(userID string) error {
	return s.userRepo.DeactivateUser(userID)
}

func (s *UserService) ChangeUserRole(userID, role string) error {
	switch models.UserRole(role) {
	case models.RoleFarmer, models.RoleAdmin:
	default:
		return fmt.Errorf("invalid role: %s", role)
	}
	return s.userRepo.ChangeUserRole(userID, models.UserRole(role))
}

// GetAnalytics fetches the dashboard counters concurrently.
func (s *UserService) GetAnalytics(ctx context.Context) (*Analytics, error) {
	var analytics Analytics

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.userRepo.CountUsers()
		analytics.UserCount = count
		return err
	})
	g.Go(func() error {
		count, err := s.cropRepo.CountCrops()
		analytics.CropsCount = count
		return err
	})
	g.Go(func() error {
		count, err := s.analysisRepo.CountAnalyses()
		analytics.AnalysesCount = count
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &analytics, nil
}
