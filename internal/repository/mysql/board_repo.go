package mysql

import (
	"context"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"gorm.io/gorm"
)

type BoardRepository struct {
	DB *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{DB: db}
}

func (r *BoardRepository) Create(ctx context.Context, b *model.Board) error {
	return translate(r.DB.WithContext(ctx).Create(b).Error)
}

func (r *BoardRepository) FindByID(ctx context.Context, id uint64) (*model.Board, error) {
	var board model.Board
	err := r.DB.WithContext(ctx).First(&board, id).Error
	return &board, translate(err)
}

func (r *BoardRepository) List(ctx context.Context, offset, limit int) ([]model.Board, error) {
	var list []model.Board
	err := r.DB.WithContext(ctx).Order("id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *BoardRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	tx := r.DB.WithContext(ctx).Model(&model.Board{}).Where("id = ?", id).Updates(fields)
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

// Delete 删除 board 前要求其下没有 club
func (r *BoardRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var clubs int64
		if err := tx.Model(&model.Club{}).Where("board_id = ?", id).Count(&clubs).Error; err != nil {
			return err
		}
		if clubs > 0 {
			return pkg.ErrConflict
		}
		if err := tx.Where("board_id = ? AND club_id = 0", id).Delete(&model.PrivilegeType{}).Error; err != nil {
			return err
		}
		// 幂等硬删除：无论是否存在，最终都视为成功
		return tx.Delete(&model.Board{}, id).Error
	})
}
