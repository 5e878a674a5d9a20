package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/article/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, article *domain.Article) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO articles (
			id, title, author_id, journal_id, category, abstract, keywords,
			status, submission_payment_status, assigned_editor_id, manager_notes,
			submission_fee, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.Title,
		article.AuthorID,
		article.JournalID,
		article.Category,
		article.Abstract,
		article.Keywords,
		article.Status,
		article.SubmissionPaymentStatus,
		article.AssignedEditorID,
		article.ManagerNotes,
		article.SubmissionFee,
		article.CreatedAt,
		article.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Article, error) {
	var item domain.Article
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.StatusUpdate, now time.Time) (bool, error) {
	values := map[string]any{
		"status":     update.To,
		"updated_at": now,
	}
	if update.Notes != nil {
		values["manager_notes"] = *update.Notes
	}
	res := db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ? AND status IN ?", id, update.From).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE articles
		 SET submission_payment_status = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		domain.PaymentCompleted,
		domain.StatusReviewing,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, authorID snowflake.ID) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		Total  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total
		 FROM articles
		 WHERE author_id = ?
		 GROUP BY status`,
		authorID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
