package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
)

const minPasswordLength = 6

// userService handles signup, signin and profile reads.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// ValidPassword reports whether password has at least six characters with
// an upper-case letter, a lower-case letter and a digit.
func ValidPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Signup registers a new user with opening balances.
func (s *userService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.UserName = strings.TrimSpace(in.UserName)
	if in.Name == "" || in.UserName == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name and userName are required")
	}
	if !ValidPassword(in.Password) {
		return nil, apperrors.ErrInvalidPassword
	}
	if in.CashBalance < 0 || in.OnlineBalance < 0 || in.MonthlyBudget < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "balances and budget cannot be negative")
	}
	if in.MonthlyBudget > in.CashBalance+in.OnlineBalance {
		return nil, apperrors.ErrBudgetAboveBalance
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("user_name = ?", in.UserName).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateUserName
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Name:          in.Name,
		UserName:      in.UserName,
		Password:      string(hashedPassword),
		CashBalance:   in.CashBalance,
		OnlineBalance: in.OnlineBalance,
		MonthlyBudget: in.MonthlyBudget,
	}
	if err := db.Create(user).Error; err != nil {
		// Lost a race with a concurrent signup for the same name.
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateUserName
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// Authenticate checks userName and password. Unknown users and wrong
// passwords fail the same way.
func (s *userService) Authenticate(ctx context.Context, userName, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("user_name = ?", strings.TrimSpace(userName)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &user, nil
}

// GetProfile returns the user with current balances.
func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(s.db.WithContext(ctx), userID)
}
