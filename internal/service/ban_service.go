package service

import (
	"context"
	"fmt"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/metrics"
	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

// BanService answers the ban check and terminates sessions of banned users.
type BanService struct {
	users  UserStore
	cache  BanCache
	tokens TokenStore
}

func NewBanService(users UserStore, cache BanCache, tokens TokenStore) *BanService {
	return &BanService{users: users, cache: cache, tokens: tokens}
}

// Status 先读缓存，未命中回源 MySQL 并回填
func (s *BanService) Status(ctx context.Context, userID uint64) (model.BanStatus, error) {
	if st, ok, err := s.cache.Get(ctx, userID); err == nil && ok {
		return st, nil
	} else if err != nil {
		logging.Log.Warn().Err(err).Uint64("user_id", userID).Msg("ban cache read failed")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.BanStatus{}, err
	}
	st := model.BanStatus{UserID: user.ID, Banned: user.Banned, Reason: user.BanReason}
	_ = s.cache.Set(ctx, userID, st)
	return st, nil
}

func (s *BanService) Ban(ctx context.Context, adminID, userID uint64, reason string) error {
	if userID == 0 || adminID == userID {
		return fmt.Errorf("%w: cannot ban self", pkg.ErrInvalidParam)
	}
	if err := s.users.SetBanned(ctx, userID, true, reason); err != nil {
		return err
	}
	st := model.BanStatus{UserID: userID, Banned: true, Reason: reason}
	if err := s.cache.Set(ctx, userID, st); err != nil {
		// 缓存写失败则删除，让下一次读回源
		_ = s.cache.Delete(ctx, userID)
	}
	if err := s.tokens.DeleteUserToken(ctx, userID); err != nil {
		return err
	}
	metrics.IncForcedLogout()
	logging.Log.Info().Uint64("admin_id", adminID).Uint64("user_id", userID).Str("reason", reason).Msg("user banned")
	return nil
}

func (s *BanService) Unban(ctx context.Context, adminID, userID uint64) error {
	if err := s.users.SetBanned(ctx, userID, false, ""); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, userID)
	logging.Log.Info().Uint64("admin_id", adminID).Uint64("user_id", userID).Msg("user unbanned")
	return nil
}

// Enforce 返回 pkg.ErrBanned 并删除登录态；用于每个请求的封禁检查
func (s *BanService) Enforce(ctx context.Context, userID uint64) (model.BanStatus, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return st, err
	}
	if !st.Banned {
		return st, nil
	}
	_ = s.tokens.DeleteUserToken(ctx, userID)
	metrics.IncForcedLogout()
	return st, pkg.ErrBanned
}
