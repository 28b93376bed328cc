package model

import "time"

// Roles stored in users.role and carried in the access token's "role" claim.
const (
    RoleStudent = "student"
    RoleAdmin   = "admin"
    RoleWarden  = "warden"
)

// User represents an account record as stored in the `users` table.
// PasswordHash never leaves the server; it is tagged out of JSON.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Email            – unique, lower-cased email address.
//  PasswordHash     – bcrypt hashed password.
//  Role             – student, admin or warden.
//  FullName         – display name.
//  Phone            – contact number (may be empty).
//  DateOfBirth      – optional calendar date.
//  Address          – free-form postal address.
//  EmergencyContact – phone number of an emergency contact.
//  IsActive         – deactivated users cannot log in or be allocated.
//  EmailVerified    – set by an admin once the address is confirmed.
//  PhoneVerified    – set by an admin once the number is confirmed.
type User struct {
    ID               uint64     `json:"id"`                      // users.id
    Email            string     `json:"email"`                   // users.email
    PasswordHash     string     `json:"-"`                       // users.password_hash
    Role             string     `json:"role"`                    // users.role
    FullName         string     `json:"full_name"`               // users.full_name
    Phone            string     `json:"phone"`                   // users.phone
    DateOfBirth      *time.Time `json:"date_of_birth,omitempty"` // users.date_of_birth (nullable)
    Address          string     `json:"address"`                 // users.address
    EmergencyContact string     `json:"emergency_contact"`       // users.emergency_contact
    IsActive         bool       `json:"is_active"`               // users.is_active
    EmailVerified    bool       `json:"email_verified"`          // users.email_verified
    PhoneVerified    bool       `json:"phone_verified"`          // users.phone_verified
    CreatedAt        time.Time  `json:"created_at"`              // users.created_at
    UpdatedAt        time.Time  `json:"updated_at"`              // users.updated_at
}

// UserStats counts accounts by role, activity and verification.
type UserStats struct {
    Total            int     `json:"total_users"`
    Students         int     `json:"students"`
    Admins           int     `json:"admins"`
    Wardens          int     `json:"wardens"`
    Active           int     `json:"active_users"`
    VerifiedEmails   int     `json:"verified_emails"`
    VerifiedPhones   int     `json:"verified_phones"`
    VerificationRate float64 `json:"verification_rate"`
}

// IsStaff reports whether the role may act on other users' records.
func IsStaff(role string) bool { return role == RoleAdmin || role == RoleWarden }

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
