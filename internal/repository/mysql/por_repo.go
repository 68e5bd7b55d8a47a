package mysql

import (
	"context"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
)

type PORRepository struct {
	DB *gorm.DB
}

func NewPORRepository(db *gorm.DB) *PORRepository {
	return &PORRepository{DB: db}
}

// Create 依赖 uk_por_user_scope，重复授予返回 ErrConflict
func (r *PORRepository) Create(ctx context.Context, p *model.PrivilegeType) error {
	return translate(r.DB.WithContext(ctx).Create(p).Error)
}

func (r *PORRepository) FindByID(ctx context.Context, id uint64) (*model.PrivilegeType, error) {
	var p model.PrivilegeType
	err := r.DB.WithContext(ctx).First(&p, id).Error
	return &p, translate(err)
}

func (r *PORRepository) Find(ctx context.Context, userID uint64, scope model.Scope) (*model.PrivilegeType, error) {
	var p model.PrivilegeType
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND club_id = ? AND board_id = ?", userID, scope.ClubID, scope.BoardID).
		First(&p).Error
	return &p, translate(err)
}

func (r *PORRepository) ListByScope(ctx context.Context, scope model.Scope) ([]model.PrivilegeType, error) {
	var list []model.PrivilegeType
	err := r.DB.WithContext(ctx).
		Where("club_id = ? AND board_id = ?", scope.ClubID, scope.BoardID).
		Order("id asc").
		Find(&list).Error
	return list, err
}

func (r *PORRepository) ListByUser(ctx context.Context, userID uint64) ([]model.PrivilegeType, error) {
	var list []model.PrivilegeType
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&list).Error
	return list, err
}

func (r *PORRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	tx := r.DB.WithContext(ctx).Model(&model.PrivilegeType{}).Where("id = ?", id).Updates(fields)
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

func (r *PORRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Delete(&model.PrivilegeType{}, id).Error
}
