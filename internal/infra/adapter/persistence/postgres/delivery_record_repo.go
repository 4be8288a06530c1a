package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/infra/db"
	"feed-ledger/internal/repository"
)

type DeliveryRecordRepo struct{ db db.Conn }

func NewDeliveryRecordRepo(conn db.Conn) repository.DeliveryRecordRepository {
	return &DeliveryRecordRepo{db: conn}
}

const deliveryColumns = `
id, feed_id, medium_id, article_id_hash, article_id, status, error_code,
internal_message, external_detail, content_type, parent_id, created_at`

func scanDeliveryRecord(row rowScanner) (*entity.DeliveryRecord, error) {
	var (
		rec                                          entity.DeliveryRecord
		articleIDHash, articleID, errorCode          sql.NullString
		internalMessage, externalDetail, contentType sql.NullString
		parentID                                     sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.FeedID, &rec.MediumID, &articleIDHash, &articleID, &rec.Status, &errorCode,
		&internalMessage, &externalDetail, &contentType, &parentID, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.ArticleIDHash = articleIDHash.String
	rec.ArticleID = articleID.String
	rec.ErrorCode = entity.ErrorCode(errorCode.String)
	rec.InternalMessage = internalMessage.String
	rec.ExternalDetail = externalDetail.String
	rec.ContentType = entity.ContentType(contentType.String)
	rec.Parent = parentID.String
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func (repo *DeliveryRecordRepo) CreateBatch(ctx context.Context, records []*entity.DeliveryRecord) error {
	defer observe("delivery_create_batch")()

	const query = `
INSERT INTO delivery_records (` + deliveryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	err := db.WithTx(ctx, repo.db, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, query,
				rec.ID, rec.FeedID, rec.MediumID,
				nullString(rec.ArticleIDHash), nullString(rec.ArticleID),
				rec.Status, nullString(string(rec.ErrorCode)),
				nullString(rec.InternalMessage), nullString(rec.ExternalDetail),
				nullString(string(rec.ContentType)), nullString(rec.Parent),
				rec.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})

	switch pgErrorCode(err) {
	case "":
	case pgUniqueViolation:
		return fmt.Errorf("CreateBatch: %w", entity.ErrConflict)
	case pgForeignKeyViolation:
		return fmt.Errorf("CreateBatch: %w", &entity.ValidationError{Field: "parent", Message: "references an unknown delivery record"})
	}
	if err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	return nil
}

func (repo *DeliveryRecordRepo) Get(ctx context.Context, id string) (*entity.DeliveryRecord, error) {
	defer observe("delivery_get")()

	const query = `
SELECT` + deliveryColumns + `
FROM delivery_records
WHERE id = $1
LIMIT 1`
	rec, err := scanDeliveryRecord(db.QueryRow(ctx, repo.db, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

func (repo *DeliveryRecordRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}
	defer observe("delivery_existing_ids")()

	query := `SELECT id FROM delivery_records WHERE id IN (` + placeholders(1, len(ids)) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistingIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistingIDs: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingIDs: %w", err)
	}
	return existing, nil
}

func (repo *DeliveryRecordRepo) FinalizePending(ctx context.Context, id string, patch entity.DeliveryStatusPatch) (*entity.DeliveryRecord, error) {
	defer observe("delivery_finalize")()

	const query = `
UPDATE delivery_records
SET status = $2,
    error_code = COALESCE($3, error_code),
    internal_message = COALESCE($4, internal_message),
    article_id = COALESCE($5, article_id)
WHERE id = $1 AND status = $6
RETURNING` + deliveryColumns

	var errorCode interface{}
	if patch.ErrorCode != nil {
		errorCode = string(*patch.ErrorCode)
	}

	rec, err := scanDeliveryRecord(db.QueryRow(ctx, repo.db, query,
		id, patch.Status, errorCode, optionalArg(patch.InternalMessage), optionalArg(patch.ArticleID),
		entity.DeliveryStatusPendingDelivery,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FinalizePending: %w", err)
	}
	return rec, nil
}

func (repo *DeliveryRecordRepo) CountDistinctArticles(ctx context.Context, filter repository.DeliveryCountFilter, since time.Time) (int64, error) {
	defer observe("delivery_count_distinct")()

	const byFeed = `
SELECT COUNT(DISTINCT COALESCE('h:' || article_id_hash, 'r:' || id))
FROM delivery_records
WHERE feed_id = $1 AND status IN ($2, $3) AND created_at >= $4`
	const byMedium = `
SELECT COUNT(DISTINCT COALESCE('h:' || article_id_hash, 'r:' || id))
FROM delivery_records
WHERE medium_id = $1 AND status IN ($2, $3) AND created_at >= $4`

	query, key := byFeed, filter.FeedID
	if filter.FeedID == "" {
		query, key = byMedium, filter.MediumID
	}

	countable := entity.CountableDeliveryStatuses()
	var n int64
	if err := db.QueryRow(ctx, repo.db, query, key, countable[0], countable[1], since).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountDistinctArticles: %w", err)
	}
	return n, nil
}

func (repo *DeliveryRecordRepo) CountPendingBefore(ctx context.Context, t time.Time) (int64, error) {
	defer observe("delivery_count_pending")()

	const query = `
SELECT COUNT(*)
FROM delivery_records
WHERE status = $1 AND created_at < $2`
	var n int64
	if err := db.QueryRow(ctx, repo.db, query, entity.DeliveryStatusPendingDelivery, t).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountPendingBefore: %w", err)
	}
	return n, nil
}
