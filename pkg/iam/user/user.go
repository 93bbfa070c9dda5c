package user

import (
	"net/http"
	"time"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/kernel"
)

// User is an identity record. Users are never hard-deleted; IsDeleted flips
// on removal and every read path must go through IsUsable.
type User struct {
	ID          kernel.UserID `db:"id" json:"id"`
	FirstName   string        `db:"first_name" json:"first_name"`
	LastName    string        `db:"last_name" json:"last_name"`
	Email       string        `db:"email" json:"email"`
	Password    string        `db:"password" json:"-"`
	PhoneNumber string        `db:"phone_number" json:"phone_number"`
	IsDeleted   bool          `db:"is_deleted" json:"-"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
	CreatedBy   kernel.UserID `db:"created_by" json:"-"`
	ModifiedBy  kernel.UserID `db:"modified_by" json:"-"`
}

// IsUsable is the single soft-delete predicate for users: a usable user has
// an identity and has not been removed.
func (u *User) IsUsable() bool {
	return u != nil && !u.ID.IsEmpty() && !u.IsDeleted
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound       = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailAlreadyExists = ErrRegistry.Register("EMAIL_ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Email already exists")
	CodePhoneAlreadyExists = ErrRegistry.Register("PHONE_ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Phone number already exists")
	CodeEmptyEmail         = ErrRegistry.Register("EMPTY_EMAIL", errx.TypeValidation, http.StatusBadRequest, "Email cannot be empty")
	CodeEmptyPassword      = ErrRegistry.Register("EMPTY_PASSWORD", errx.TypeValidation, http.StatusBadRequest, "Password cannot be empty")
	CodeEmptyPhone         = ErrRegistry.Register("EMPTY_PHONE", errx.TypeValidation, http.StatusBadRequest, "Phone number cannot be empty")
	CodeWeakPassword       = ErrRegistry.Register("WEAK_PASSWORD", errx.TypeValidation, http.StatusBadRequest, "Password is too short")
)

func ErrUserNotFound() *errx.Error       { return ErrRegistry.New(CodeUserNotFound) }
func ErrEmailAlreadyExists() *errx.Error { return ErrRegistry.New(CodeEmailAlreadyExists) }
func ErrPhoneAlreadyExists() *errx.Error { return ErrRegistry.New(CodePhoneAlreadyExists) }
func ErrEmptyEmail() *errx.Error         { return ErrRegistry.New(CodeEmptyEmail) }
func ErrEmptyPassword() *errx.Error      { return ErrRegistry.New(CodeEmptyPassword) }
func ErrEmptyPhone() *errx.Error         { return ErrRegistry.New(CodeEmptyPhone) }
func ErrWeakPassword() *errx.Error       { return ErrRegistry.New(CodeWeakPassword) }
