package mysql

import (
	"context"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ForumRepository struct {
	DB *gorm.DB
}

type ForumMemberRepository struct {
	DB *gorm.DB
}

func NewForumRepository(db *gorm.DB) *ForumRepository {
	return &ForumRepository{DB: db}
}

func NewForumMemberRepository(db *gorm.DB) *ForumMemberRepository {
	return &ForumMemberRepository{DB: db}
}

// Create 创建论坛，并让创建者以版主身份加入
func (r *ForumRepository) Create(ctx context.Context, f *model.Forum) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return translate(err)
		}
		mRepo := &ForumMemberRepository{DB: tx}
		return mRepo.Join(ctx, &model.ForumMember{
			ForumID: f.ID,
			UserID:  f.CreatedBy,
			Role:    model.ForumRoleModerator,
		})
	})
}

func (r *ForumRepository) FindByID(ctx context.Context, id uint64) (*model.Forum, error) {
	var forum model.Forum
	err := r.DB.WithContext(ctx).First(&forum, "id = ? AND status = ?", id, model.ForumActive).Error
	return &forum, translate(err)
}

func (r *ForumRepository) List(ctx context.Context, scope model.Scope, offset, limit int) ([]model.Forum, error) {
	var list []model.Forum
	q := scopeWhere(r.DB.WithContext(ctx).Where("status = ?", model.ForumActive), scope)
	err := q.Order("id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// SoftDelete 幂等软删除
func (r *ForumRepository) SoftDelete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Forum{}).
		Where("id = ?", id).
		Update("status", model.ForumDeleted).Error
}

func (r *ForumMemberRepository) Join(ctx context.Context, member *model.ForumMember) error {
	// 幂等插入：若已存在 (forum_id, user_id) 则不报错
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "forum_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
}

func (r *ForumMemberRepository) Leave(ctx context.Context, forumID, userID uint64) error {
	return r.DB.WithContext(ctx).Where("forum_id = ? AND user_id = ?", forumID, userID).
		Delete(&model.ForumMember{}).Error
}

func (r *ForumMemberRepository) Find(ctx context.Context, forumID, userID uint64) (*model.ForumMember, error) {
	var m model.ForumMember
	err := r.DB.WithContext(ctx).Where("forum_id = ? AND user_id = ?", forumID, userID).First(&m).Error
	return &m, translate(err)
}

func (r *ForumMemberRepository) List(ctx context.Context, forumID uint64, offset, limit int) ([]model.ForumMember, error) {
	var list []model.ForumMember
	err := r.DB.WithContext(ctx).Where("forum_id = ?", forumID).
		Order("id asc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *ForumMemberRepository) MemberIDs(ctx context.Context, forumID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.ForumMember{}).
		Where("forum_id = ?", forumID).
		Pluck("user_id", &ids).Error
	return ids, err
}
