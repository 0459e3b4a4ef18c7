package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// CreateUserInput 新建用户请求体
type CreateUserInput struct {
	FirstName         string  `json:"first_name"`
	LastName          string  `json:"last_name"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	Role              string  `json:"role"`
	InstitutionID     *uint64 `json:"institution_id"`
	SocialMediaHandle string  `json:"social_media_handle"`
}

// UserService 用户维护，密码以 bcrypt 哈希保存
type UserService struct {
	cost int
}

func NewUserService() *UserService {
	return &UserService{cost: bcrypt.DefaultCost}
}

func (s *UserService) CreateUser(ctx context.Context, tx *repository.Store, in CreateUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, validationf("username, email and password are required")
	}
	role := model.Role(in.Role)
	if !role.Valid() {
		return nil, validationf("unknown role %q", in.Role)
	}
	if role.RequiresInstitution() {
		if in.InstitutionID == nil {
			return nil, validationf("institution_id is required for role %s", role)
		}
		if _, err := tx.Institutions.GetByID(ctx, *in.InstitutionID); err != nil {
			return nil, notFoundOr(err, "institution %d not found", *in.InstitutionID)
		}
	}
	exists, err := tx.Users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, conflictf("username or email already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  string(hash),
		Role:          role,
		InstitutionID: in.InstitutionID,
	}
	if in.SocialMediaHandle != "" {
		raw, err := json.Marshal(model.UserProfile{SocialMediaHandle: in.SocialMediaHandle})
		if err != nil {
			return nil, err
		}
		user.Profile = datatypes.JSON(raw)
	}
	if err := tx.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictf("username or email already taken")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, store *repository.Store) ([]*model.User, error) {
	return store.Users.List(ctx)
}

// CheckPassword 供 CLI 等本地工具校验密码
func CheckPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
