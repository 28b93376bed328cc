package repository

import (
	"context"
	"database/sql"
	"math"
	"strconv"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// FeedbackRepo persists resident feedback.
type FeedbackRepo struct{ db *sql.DB }

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

// Create inserts feedback and fills in its ID.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO feedback (user_id, rating, comments) VALUES (?, ?, ?)", f.UserID, f.Rating, f.Comments)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, "SELECT id, user_id, rating, comments, created_at FROM feedback WHERE id = ?", id).
		Scan(&f.ID, &f.UserID, &f.Rating, &f.Comments, &f.CreatedAt)
}

// List returns feedback under scope, newest first.
func (r *FeedbackRepo) List(ctx context.Context, scope policy.Predicate, p Page) ([]model.Feedback, error) {
	w := &where{}
	w.scope(scope)
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, rating, comments, created_at FROM feedback"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Rating, &f.Comments, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Stats summarizes the ratings visible under scope.
func (r *FeedbackRepo) Stats(ctx context.Context, scope policy.Predicate) (model.FeedbackStats, error) {
	w := &where{}
	w.scope(scope)
	rows, err := r.db.QueryContext(ctx,
		"SELECT rating, COUNT(*) FROM feedback"+w.String()+" GROUP BY rating", w.args...)
	if err != nil {
		return model.FeedbackStats{}, err
	}
	defer rows.Close()
	s := model.FeedbackStats{Distribution: make(map[string]int, 5)}
	for star := 1; star <= 5; star++ {
		s.Distribution[strconv.Itoa(star)+"_star"] = 0
	}
	sum := 0
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return model.FeedbackStats{}, err
		}
		s.Distribution[strconv.Itoa(rating)+"_star"] = n
		s.Total += n
		sum += rating * n
	}
	if err := rows.Err(); err != nil {
		return model.FeedbackStats{}, err
	}
	if s.Total > 0 {
		s.AverageRating = math.Round(float64(sum)/float64(s.Total)*100) / 100
	}
	return s, nil
}
