package service

import (
	"context"
	"fmt"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/pkg"

	"github.com/google/uuid"
)

const (
	likeLockTTL     = 3 * time.Second
	likeLockBackoff = 50 * time.Millisecond
)

type PostLikeService struct {
	repo      PostLikeStore
	posts     PostStore
	likeCache LikeCache
	lock      Locker
}

func NewPostLikeService(repo PostLikeStore, posts PostStore, likeCache LikeCache, lock Locker) *PostLikeService {
	return &PostLikeService{repo: repo, posts: posts, likeCache: likeCache, lock: lock}
}

func likeLockKey(postID uint64) string {
	return fmt.Sprintf("like:post:%d", postID)
}

// Like 写库成功后更新集合；计数加锁回写，拿不到锁则删计数Key，交给读侧惰性回填
func (s *PostLikeService) Like(ctx context.Context, userID, postID uint64) (bool, error) {
	if userID == 0 || postID == 0 {
		return false, pkg.ErrInvalidParam
	}
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return false, err
	}

	// 先写数据库
	changed, err := s.repo.Like(ctx, userID, postID)
	if err != nil || !changed {
		// 幂等命中时，尽量惰性回填集合（不创建新集合）
		if err == nil {
			s.likeCache.WarmIsLiked(ctx, userID, postID, true)
		}
		return changed, err
	}

	// 集合可直接更新（不强制），失败忽略
	_ = s.likeCache.AddLike(ctx, userID, postID)
	s.syncCount(ctx, postID)
	return true, nil
}

// Unlike 同样策略
func (s *PostLikeService) Unlike(ctx context.Context, userID, postID uint64) (bool, error) {
	if userID == 0 || postID == 0 {
		return false, pkg.ErrInvalidParam
	}
	changed, err := s.repo.Unlike(ctx, userID, postID)
	if err != nil || !changed {
		if err == nil {
			s.likeCache.WarmIsLiked(ctx, userID, postID, false)
		}
		return changed, err
	}

	_ = s.likeCache.RemoveLike(ctx, userID, postID)
	s.syncCount(ctx, postID)
	return true, nil
}

// syncCount 持锁时以库为准强更新计数；否则删 Key 并延迟二删
func (s *PostLikeService) syncCount(ctx context.Context, postID uint64) {
	key, token := likeLockKey(postID), uuid.NewString()
	got, _ := s.lock.Acquire(ctx, key, token, likeLockTTL)
	if !got {
		_ = s.likeCache.DeleteCount(ctx, postID, 500*time.Millisecond)
		return
	}
	defer s.release(ctx, key, token)

	cnt, err := s.repo.GetLikeCount(ctx, postID)
	if err == nil {
		err = s.likeCache.SetLikeCount(ctx, postID, cnt)
	}
	if err != nil {
		_ = s.likeCache.DeleteCount(ctx, postID)
	}
}

func (s *PostLikeService) release(ctx context.Context, key, token string) {
	if err := s.lock.Release(ctx, key, token); err != nil {
		logging.Log.Warn().Err(err).Str("key", key).Msg("release like lock failed")
	}
}

func (s *PostLikeService) IsLiked(ctx context.Context, userID, postID uint64) (bool, error) {
	if userID == 0 || postID == 0 {
		return false, pkg.ErrInvalidParam
	}
	// 先查缓存集合（命中才用）
	if b, ok, err := s.likeCache.IsLikedCached(ctx, userID, postID); err == nil && ok {
		return b, nil
	}
	// 回源 MySQL
	b, err := s.repo.IsLiked(ctx, userID, postID)
	if err == nil {
		s.likeCache.WarmIsLiked(ctx, userID, postID, b)
	}
	return b, err
}

// GetCountWithLock 缓存未命中时单飞重建：只有拿到锁的请求回源
func (s *PostLikeService) GetCountWithLock(ctx context.Context, postID uint64) (int64, error) {
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	key, token := likeLockKey(postID), uuid.NewString()
	got, _ := s.lock.Acquire(ctx, key, token, likeLockTTL)

	if got {
		defer s.release(ctx, key, token)

		// 第二次检查
		if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
			return v, nil
		}
		v, err := s.repo.GetLikeCount(ctx, postID)
		if err != nil {
			return 0, err
		}
		_ = s.likeCache.SetLikeCount(ctx, postID, v)
		return v, nil
	}

	// 没拿到锁，短暂退避后再读一次缓存，避免全体打DB
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(likeLockBackoff):
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	return s.repo.GetLikeCount(ctx, postID)
}
