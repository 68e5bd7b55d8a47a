package mysql

import (
	"context"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
)

type OpportunityRepository struct {
	DB *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{DB: db}
}

// CreateWithEvent 机会与 outbox 事件同事务写入，订阅者通知由 relayer 异步扇出
func (r *OpportunityRepository) CreateWithEvent(ctx context.Context, o *model.Opportunity, ev *model.OutboxEvent) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return translate(err)
		}
		if ev == nil {
			return nil
		}
		ev.RefID = o.ID
		return insertOutbox(tx, ev)
	})
}

func (r *OpportunityRepository) FindByID(ctx context.Context, id uint64) (*model.Opportunity, error) {
	var o model.Opportunity
	err := r.DB.WithContext(ctx).First(&o, id).Error
	return &o, translate(err)
}

func (r *OpportunityRepository) List(ctx context.Context, f model.OpportunityFilter) ([]model.Opportunity, error) {
	var list []model.Opportunity
	q := scopeWhere(r.DB.WithContext(ctx), f.Scope)
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	err := q.Order("created_at DESC, id DESC").Offset(f.Offset).Limit(f.Limit).Find(&list).Error
	return list, err
}

func (r *OpportunityRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	tx := r.DB.WithContext(ctx).Model(&model.Opportunity{}).Where("id = ?", id).Updates(fields)
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

func (r *OpportunityRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Delete(&model.Opportunity{}, id).Error
}
