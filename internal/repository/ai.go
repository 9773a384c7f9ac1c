package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/planner"
)

type AIRepository struct {
	db *pgxpool.Pool
}

// NewAIRepository создает репозиторий для AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// LogRequest сохраняет лог AI-запроса.
func (r *AIRepository) LogRequest(ctx context.Context, entry planner.AuditEntry) error {
	var userID *uuid.UUID
	if entry.UserID != uuid.Nil {
		userID = &entry.UserID
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (user_id, request_type, provider, model, prompt, raw_response, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		userID,
		entry.RequestType,
		entry.Provider,
		entry.Model,
		entry.Prompt,
		string(entry.RawResponse),
		entry.Success,
		entry.ErrorMessage,
	)
	return err
}

type AIRequestFilter struct {
	UserID      uuid.UUID
	Success     *bool
	RequestType *string
}

type AIRequestRecord struct {
	ID           uuid.UUID
	RequestType  string
	Provider     string
	Model        string
	Prompt       *string
	RawResponse  *string
	Success      bool
	ErrorMessage *string
	CreatedAt    time.Time
}

type DailyCount struct {
	Day   time.Time
	Count int
}

type UsageStats struct {
	Plans           int
	AIRequests      int
	AISuccess       int
	AIFail          int
	AIRequestsByDay []DailyCount
}

// ListRequests возвращает журнал AI-запросов пользователя с фильтрацией.
func (r *AIRepository) ListRequests(ctx context.Context, filter AIRequestFilter, limit, offset int, includePayloads bool) ([]AIRequestRecord, error) {
	where, args := buildAIRequestWhere(filter)

	columns := "id, request_type, provider, model, success, error_message, created_at"
	if includePayloads {
		columns = "id, request_type, provider, model, prompt, raw_response, success, error_message, created_at"
	}

	limitParam := len(args) + 1
	offsetParam := len(args) + 2
	query := fmt.Sprintf("SELECT %s FROM ai_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", columns, where, limitParam, offsetParam)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]AIRequestRecord, 0)
	for rows.Next() {
		var record AIRequestRecord
		dest := []any{&record.ID, &record.RequestType, &record.Provider, &record.Model}
		if includePayloads {
			dest = append(dest, &record.Prompt, &record.RawResponse)
		}
		dest = append(dest, &record.Success, &record.ErrorMessage, &record.CreatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		requests = append(requests, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

// CountRequests возвращает количество AI-запросов по фильтру.
func (r *AIRepository) CountRequests(ctx context.Context, filter AIRequestFilter) (int, error) {
	where, args := buildAIRequestWhere(filter)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM ai_requests"+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Usage возвращает статистику планов и AI-запросов пользователя за N дней.
func (r *AIRepository) Usage(ctx context.Context, userID uuid.UUID, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM meal_plans WHERE user_id = $1`, userID).Scan(&stats.Plans); err != nil {
		return stats, err
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success)
		 FROM ai_requests
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.AIRequests, &stats.AISuccess, &stats.AIFail); err != nil {
		return stats, err
	}

	start := time.Now().UTC().AddDate(0, 0, -days+1)
	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day,
		        COUNT(*)
		 FROM ai_requests
		 WHERE user_id = $1 AND created_at >= $2
		 GROUP BY day
		 ORDER BY day DESC`,
		userID, start,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.AIRequestsByDay = make([]DailyCount, 0)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.AIRequestsByDay = append(stats.AIRequestsByDay, row)
	}

	if err := rows.Err(); err != nil {
		return stats, err
	}

	return stats, nil
}

func buildAIRequestWhere(filter AIRequestFilter) (string, []any) {
	args := []any{filter.UserID}
	clauses := []string{"user_id = $1"}

	if filter.Success != nil {
		args = append(args, *filter.Success)
		clauses = append(clauses, fmt.Sprintf("success = $%d", len(args)))
	}

	if filter.RequestType != nil {
		args = append(args, *filter.RequestType)
		clauses = append(clauses, fmt.Sprintf("request_type = $%d", len(args)))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
