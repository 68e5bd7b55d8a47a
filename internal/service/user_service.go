package service

import (
	"context"
	"errors"
	"fmt"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrBadCredentials     = errors.New("invalid username or password")
)

type UserService struct {
	repo     UserStore
	tokens   TokenStore
	emailSvc *EmailService
}

func NewUserService(repo UserStore, tokens TokenStore, emailSvc *EmailService) *UserService {
	return &UserService{repo: repo, tokens: tokens, emailSvc: emailSvc}
}

func (s *UserService) Register(ctx context.Context, username, password, email, code string) (*model.User, error) {
	if username == "" || len(password) < 6 || email == "" {
		return nil, pkg.ErrInvalidParam
	}
	// 验证code是否正确
	ok, err := s.emailSvc.VerifyCode(ctx, ScopeRegister, email, code)
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: %w", pkg.ErrInvalidParam, ErrVerificationFailed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Password: string(hash),
		Email:    email,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 校验密码后签发 token，并写入 redis（单点登录）
func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", pkg.ErrUnauthorized, ErrBadCredentials)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: %w", pkg.ErrUnauthorized, ErrBadCredentials)
	}
	if user.Banned {
		return nil, pkg.ErrBanned
	}
	return s.issue(ctx, user)
}

func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	token, err := pkg.GeneratePair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	if err = s.tokens.AddUserToken(ctx, user.ID, token.AccessToken); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.tokens.DeleteUserToken(ctx, userID)
}

// Refresh 利用 refresh token 换新的一对 token；被封禁用户不能续期
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := pkg.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkg.ErrUnauthorized, err)
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrUnauthorized
		}
		return nil, err
	}
	if user.Banned {
		return nil, pkg.ErrBanned
	}
	return s.issue(ctx, user)
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 6 {
		return pkg.ErrInvalidParam
	}
	ok, err := s.emailSvc.VerifyCode(ctx, ScopeReset, email, code)
	if err != nil || !ok {
		return fmt.Errorf("%w: %w", pkg.ErrInvalidParam, ErrVerificationFailed)
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	// 重置后旧会话失效
	return s.tokens.DeleteUserToken(ctx, user.ID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return pkg.ErrInvalidParam
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: old password mismatch", pkg.ErrInvalidParam)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

func (s *UserService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// CheckSession 校验 access token 是否为 redis 中记录的最新一次登录，并续期
func (s *UserService) CheckSession(ctx context.Context, userID uint64, token string) error {
	current, err := s.tokens.GetUserToken(ctx, userID)
	if err != nil || current != token {
		return fmt.Errorf("%w: account has been logging elsewhere", pkg.ErrUnauthorized)
	}
	return s.tokens.ExtendUserToken(ctx, userID)
}
