package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NewUser carries the fields accepted at registration.
type NewUser struct {
	Email    string
	Password string
	Role     string
	FullName string
	Phone    string
}

// ProfileUpdate lists the self-editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	FullName         *string
	Phone            *string
	Address          *string
	EmergencyContact *string
	DateOfBirth      *time.Time
}

const userCols = "id,email,password_hash,role,full_name,phone,date_of_birth,address,emergency_contact,is_active,email_verified,phone_verified,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u   model.User
		dob sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Phone, &dob,
		&u.Address, &u.EmergencyContact, &u.IsActive, &u.EmailVerified, &u.PhoneVerified, &u.CreatedAt, &u.UpdatedAt)
	u.DateOfBirth = nullTime(dob)
	return u, err
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, full_name, phone) VALUES (?,?,?,?,?)",
		email, hash, nu.Role, strings.TrimSpace(nu.FullName), strings.TrimSpace(nu.Phone))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// Get fetches a user visible under scope; rows outside it are ErrNotFound.
func (r *UserRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.User, error) {
	w := &where{}
	w.add("id = ?", id)
	w.scope(scope)
	u, err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users"+w.String()+" LIMIT 1", w.args...))
	return u, notFound(err)
}

// UserFilter narrows List.
type UserFilter struct {
	Role     string
	IsActive *bool
}

// List returns users under scope ordered by id.
func (r *UserRepo) List(ctx context.Context, scope policy.Predicate, f UserFilter, p Page) ([]model.User, error) {
	w := &where{}
	w.scope(scope)
	if f.Role != "" {
		w.add("role = ?", f.Role)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	limit, offset := p.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users"+w.String()+" ORDER BY id LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile applies the non-nil fields of up.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, up ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	if up.FullName != nil {
		sets, args = append(sets, "full_name=?"), append(args, strings.TrimSpace(*up.FullName))
	}
	if up.Phone != nil {
		sets, args = append(sets, "phone=?"), append(args, strings.TrimSpace(*up.Phone))
	}
	if up.Address != nil {
		sets, args = append(sets, "address=?"), append(args, *up.Address)
	}
	if up.EmergencyContact != nil {
		sets, args = append(sets, "emergency_contact=?"), append(args, strings.TrimSpace(*up.EmergencyContact))
	}
	if up.DateOfBirth != nil {
		sets, args = append(sets, "date_of_birth=?"), append(args, *up.DateOfBirth)
	}
	if len(sets) == 0 {
		return nil
	}
	return r.exec(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", append(args, id)...)
}

// SetRoleAndActive updates the admin-controlled fields. Nil means unchanged.
func (r *UserRepo) SetRoleAndActive(ctx context.Context, id uint64, role *string, active *bool) error {
	sets := []string{}
	args := []any{}
	if role != nil {
		sets, args = append(sets, "role=?"), append(args, *role)
	}
	if active != nil {
		sets, args = append(sets, "is_active=?"), append(args, *active)
	}
	if len(sets) == 0 {
		return nil
	}
	return r.exec(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", append(args, id)...)
}

// SetPasswordHash replaces the stored bcrypt hash.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	return r.exec(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
}

// VerifyEmail marks the user's email address as confirmed.
func (r *UserRepo) VerifyEmail(ctx context.Context, id uint64) error {
	return r.exec(ctx, "UPDATE users SET email_verified=1 WHERE id=?", id)
}

// VerifyPhone marks the user's phone number as confirmed.
func (r *UserRepo) VerifyPhone(ctx context.Context, id uint64) error {
	return r.exec(ctx, "UPDATE users SET phone_verified=1 WHERE id=?", id)
}

// Stats counts users by role, activity and verification in one pass.
func (r *UserRepo) Stats(ctx context.Context) (model.UserStats, error) {
	var s model.UserStats
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(role = 'student'),0), COALESCE(SUM(role = 'admin'),0), COALESCE(SUM(role = 'warden'),0),
		COALESCE(SUM(is_active),0), COALESCE(SUM(email_verified),0), COALESCE(SUM(phone_verified),0)
		FROM users`).Scan(&s.Total, &s.Students, &s.Admins, &s.Wardens, &s.Active, &s.VerifiedEmails, &s.VerifiedPhones)
	if err != nil {
		return s, err
	}
	if s.Total > 0 {
		s.VerificationRate = math.Round(float64(s.VerifiedEmails)/float64(s.Total)*10000) / 100
	}
	return s, nil
}

func (r *UserRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when values are unchanged, so only a
	// missing row is reported as ErrNotFound.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", args[len(args)-1]).Scan(&one); err != nil {
			return notFound(err)
		}
	}
	return nil
}
