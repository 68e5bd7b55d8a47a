package mysql

import (
	"context"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

// CreateWithEvent 帖子与 outbox 事件同事务写入
func (r *PostRepository) CreateWithEvent(ctx context.Context, post *model.Post, ev *model.OutboxEvent) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return translate(err)
		}
		if ev == nil {
			return nil
		}
		ev.RefID = post.ID
		return insertOutbox(tx, ev)
	})
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).First(&post, "id = ? AND status = ?", id, model.PostNormal).Error
	return &post, translate(err)
}

// ListByForum 基础分页查询
func (r *PostRepository) ListByForum(ctx context.Context, forumID uint64, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.WithContext(ctx).
		Where("forum_id = ? AND status = ?", forumID, model.PostNormal).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ListByForumCursor 基于时间游标的查询：索引 (forum_id, created_at DESC, id DESC)
// lastCreatedAt=0 表示第一页；否则用 (created_at, id) 作为严格游标
func (r *PostRepository) ListByForumCursor(ctx context.Context, forumID, lastID uint64, lastCreatedAt int64, limit int) ([]model.Post, error) {
	var list []model.Post
	q := r.DB.WithContext(ctx).Where("forum_id = ? AND status = ?", forumID, model.PostNormal)
	if lastCreatedAt > 0 {
		// 先比时间，再在同一时间点用 id 打破并列
		q = q.Where("(created_at < FROM_UNIXTIME(?) OR (created_at = FROM_UNIXTIME(?) AND id < ?))", lastCreatedAt, lastCreatedAt, lastID)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// SoftDelete 软删除，返回受影响行数；已删除时为 0
func (r *PostRepository) SoftDelete(ctx context.Context, id uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND status = ?", id, model.PostNormal).
		Update("status", model.PostDeleted)
	return tx.RowsAffected, tx.Error
}
