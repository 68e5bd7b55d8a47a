package mysql

import (
	"context"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
)

type ClubRepository struct {
	DB *gorm.DB
}

func NewClubRepository(db *gorm.DB) *ClubRepository {
	return &ClubRepository{DB: db}
}

func (r *ClubRepository) Create(ctx context.Context, c *model.Club) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

func (r *ClubRepository) FindByID(ctx context.Context, id uint64) (*model.Club, error) {
	var club model.Club
	err := r.DB.WithContext(ctx).First(&club, id).Error
	return &club, translate(err)
}

// List boardID 为 0 时不过滤
func (r *ClubRepository) List(ctx context.Context, boardID uint64, offset, limit int) ([]model.Club, error) {
	var list []model.Club
	q := r.DB.WithContext(ctx).Order("id desc")
	if boardID != 0 {
		q = q.Where("board_id = ?", boardID)
	}
	err := q.Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *ClubRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	tx := r.DB.WithContext(ctx).Model(&model.Club{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete 连同 club 的 POR 与订阅一起删除
func (r *ClubRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("club_id = ?", id).Delete(&model.PrivilegeType{}).Error; err != nil {
			return err
		}
		if err := tx.Where("club_id = ?", id).Delete(&model.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Club{}, id).Error
	})
}
