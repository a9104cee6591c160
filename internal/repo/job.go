package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/gigmarket/internal/models"
)

func (r *GormRepo) ListJobs(ctx context.Context, from, limit int) ([]models.Job, int64, error) {
	db := r.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Job{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.Job
	err := db.Order("created_at DESC").Order("id DESC").
		Offset(from).Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *GormRepo) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := r.DB.WithContext(ctx).Preload("Attachments").First(&job, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// CreateJob stores the job and, when given, its attachment in one
// transaction.
func (r *GormRepo) CreateJob(ctx context.Context, job *models.Job, att *models.Attachment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attachments").Create(job).Error; err != nil {
			return err
		}
		if att == nil {
			return nil
		}
		att.JobID = job.ID
		if err := tx.Create(att).Error; err != nil {
			return err
		}
		job.Attachments = append(job.Attachments, *att)
		return nil
	})
}
