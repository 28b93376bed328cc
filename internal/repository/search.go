package repository

import (
	"context"
	"database/sql"
	"strings"
)

// SearchRepo runs the staff-wide text search over users and rooms.
type SearchRepo struct{ db *sql.DB }

func NewSearchRepo(db *sql.DB) *SearchRepo { return &SearchRepo{db: db} }

// SearchLimit caps each result group.
const SearchLimit = 20

type UserHit struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type RoomHit struct {
	ID       uint64 `json:"id"`
	Number   string `json:"number"`
	RoomType string `json:"room_type"`
	Floor    int    `json:"floor"`
	Status   string `json:"status"`
}

type SearchResult struct {
	Users []UserHit `json:"users"`
	Rooms []RoomHit `json:"rooms"`
}

// Search matches q case-insensitively against user and room text columns.
func (r *SearchRepo) Search(ctx context.Context, q string) (SearchResult, error) {
	res := SearchResult{Users: []UserHit{}, Rooms: []RoomHit{}}
	q = strings.TrimSpace(q)
	if q == "" {
		return res, nil
	}
	pat := likePattern(q)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, full_name, phone, role
		   FROM users
		  WHERE LOWER(email) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(phone) LIKE ?
		  ORDER BY full_name, id
		  LIMIT ?`,
		pat, pat, pat, SearchLimit)
	if err != nil {
		return res, err
	}
	for rows.Next() {
		var h UserHit
		if err := rows.Scan(&h.ID, &h.Email, &h.FullName, &h.Phone, &h.Role); err != nil {
			rows.Close()
			return res, err
		}
		res.Users = append(res.Users, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, number, room_type, floor, status
		   FROM rooms
		  WHERE LOWER(number) LIKE ? OR LOWER(room_type) LIKE ? OR LOWER(description) LIKE ?
		  ORDER BY number
		  LIMIT ?`,
		pat, pat, pat, SearchLimit)
	if err != nil {
		return res, err
	}
	defer rows.Close()
	for rows.Next() {
		var h RoomHit
		if err := rows.Scan(&h.ID, &h.Number, &h.RoomType, &h.Floor, &h.Status); err != nil {
			return res, err
		}
		res.Rooms = append(res.Rooms, h)
	}
	return res, rows.Err()
}
