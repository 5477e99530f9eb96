package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
	"github.com/visaflow/internal/storage"
)

// AuthService отвечает за регистрацию, вход по email/паролю и разрешение
// bearer-токена в Identity.
type AuthService struct {
	userRepo   *repository.UserRepository
	officeRepo *repository.OfficeRepository
	store      storage.TokenStore
}

func NewAuthService(userRepo *repository.UserRepository, officeRepo *repository.OfficeRepository, store storage.TokenStore) *AuthService {
	return &AuthService{userRepo: userRepo, officeRepo: officeRepo, store: store}
}

type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	// Поля офиса, обязательны при role=office.
	Address     string `json:"address"`
	Governorate string `json:"governorate"`
	VisaLimit   int    `json:"visa_limit"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the opaque bearer token the client presents on
// subsequent requests.
type LoginResponse struct {
	Token string           `json:"token"`
	User  model.UserPublic `json:"user"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register создаёт пользователя; для роли office в той же операции создаётся
// профиль офиса с лимитом заявок.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if !model.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: invalid role", ErrValidation)
	}
	role := model.Role(req.Role)
	if role == model.RoleOffice {
		if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.Governorate) == "" {
			return nil, fmt.Errorf("%w: address and governorate are required for offices", ErrValidation)
		}
		if req.VisaLimit <= 0 {
			return nil, fmt.Errorf("%w: visa_limit must be positive", ErrValidation)
		}
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if role == model.RoleOffice {
		if err := s.officeRepo.CreateProfile(ctx, user.ID, strings.TrimSpace(req.Address), strings.TrimSpace(req.Governorate), req.VisaLimit, user.CreatedAt); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Login проверяет пароль и выдаёт новый токен. Неверный email и неверный
// пароль неразличимы для клиента.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	allowed, err := s.store.CheckLoginRateLimit(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(raw)
	if err := s.store.SetToken(ctx, token, user.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user.ToPublic()}, nil
}

// Logout отзывает токен. Отзыв неизвестного токена не ошибка.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.store.DeleteToken(ctx, token)
}

// Identify разрешает bearer-токен в Identity. Токен без живой записи
// пользователя считается отозванным.
func (s *AuthService) Identify(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, ErrUnauthenticated
	}
	userID, err := s.store.GetToken(ctx, token)
	if err != nil {
		return model.Identity{}, err
	}
	if userID == "" {
		return model.Identity{}, ErrUnauthenticated
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, fmt.Errorf("%w: user no longer exists", repository.ErrNotFound)
		}
		return model.Identity{}, err
	}
	return model.Identity{ID: user.ID, Role: user.Role}, nil
}

// Profile возвращает публичный профиль пользователя; для офисов добавляются
// данные офиса.
func (s *AuthService) Profile(ctx context.Context, actor model.Identity) (map[string]any, error) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"user": user.ToPublic()}
	if user.Role == model.RoleOffice {
		office, err := s.officeRepo.GetByID(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if office != nil {
			out["office"] = office
		}
	}
	return out, nil
}

type UpdateProfileRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, actor model.Identity, req UpdateProfileRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := s.userRepo.UpdateProfile(ctx, actor.ID, name, strings.TrimSpace(req.PhoneNumber)); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, actor.ID)
}
