package implementation

import (
	"context"
	"errors"

	"chatbot-billing-be/internal/repository/specification"

	"gorm.io/gorm"
)

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// findOne loads the first row matching specs. A missing row is nil, nil.
func findOne[M any](ctx context.Context, db *gorm.DB, specs ...specification.Specification) (*M, error) {
	var row M
	query := applySpecifications(db.WithContext(ctx), specs...)
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func findAll[M any](ctx context.Context, db *gorm.DB, specs ...specification.Specification) ([]*M, error) {
	var rows []*M
	query := applySpecifications(db.WithContext(ctx), specs...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
