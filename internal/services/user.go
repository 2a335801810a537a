package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	userColumns = "id, full_name, email, phone, address, pincode, password_hash, created_at"

	identityTakenQuery        = "SELECT EXISTS(SELECT 1 FROM users WHERE email = ? OR phone = ?)"
	identityTakenByOtherQuery = "SELECT EXISTS(SELECT 1 FROM users WHERE (email = ? OR phone = ?) AND id <> ?)"
	insertUserQuery           = "INSERT INTO users (full_name, email, phone, address, pincode, password_hash) VALUES (?, ?, ?, ?, ?, ?)"
	findUserByIdentifierQuery = "SELECT " + userColumns + " FROM users WHERE email = ? OR phone = ? ORDER BY id LIMIT 1"
	getUserQuery              = "SELECT " + userColumns + " FROM users WHERE id = ?"
	userCountsQuery           = "SELECT (SELECT COUNT(*) FROM cart_items WHERE user_id = ?), (SELECT COUNT(*) FROM wishlist_items WHERE user_id = ?)"
	updateUserQuery           = "UPDATE users SET full_name = ?, email = ?, phone = ?, address = ?, pincode = ? WHERE id = ?"
)

// UserService handles accounts and credentials
type UserService struct {
	db         *db.DB
	metrics    *metrics.AppMetrics
	bcryptCost int
}

// NewUserService creates a new user service
func NewUserService(db *db.DB, metrics *metrics.AppMetrics) *UserService {
	return &UserService{
		db:         db,
		metrics:    metrics,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register creates an account. Email and phone must both be unused.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Pincode = strings.TrimSpace(req.Pincode)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	taken, err := s.identityTaken(ctx, identityTakenQuery, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	start := time.Now()
	result, err := s.db.ExecContext(ctx, insertUserQuery,
		req.FullName, req.Email, req.Phone, req.Address, req.Pincode, string(hash))
	s.metrics.RecordDBQuery(ctx, "INSERT", "users", insertUserQuery, start, err)
	if isDuplicateKey(err) {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	logger.Info(ctx).Int64("user_id", id).Msg("user registered")

	return &models.User{
		ID:           id,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Pincode:      req.Pincode,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}, nil
}

// Login verifies a password for the account matching identifier, which may
// be an email address or a phone number. The password is compared exactly as
// given, the same bytes Register hashed.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || strings.TrimSpace(password) == "" {
		return nil, validationError("Identifier and password are required")
	}

	start := time.Now()
	var user models.User
	err := scanUser(s.db.QueryRowContext(ctx, findUserByIdentifierQuery, identifier, identifier), &user)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", findUserByIdentifierQuery, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	start := time.Now()
	var user models.User
	err := scanUser(s.db.QueryRowContext(ctx, getUserQuery, id), &user)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", getUserQuery, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Counts returns the number of distinct cart entries and wishlist entries.
func (s *UserService) Counts(ctx context.Context, id int64) (cart, wishlist int, err error) {
	start := time.Now()
	err = s.db.QueryRowContext(ctx, userCountsQuery, id, id).Scan(&cart, &wishlist)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", userCountsQuery, start, err)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count user items: %w", err)
	}
	return cart, wishlist, nil
}

// UpdateProfile replaces the acting user's contact details.
func (s *UserService) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Pincode = strings.TrimSpace(req.Pincode)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	taken, err := s.identityTaken(ctx, identityTakenByOtherQuery, req.Email, req.Phone, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAlreadyRegistered
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, updateUserQuery,
		req.FullName, req.Email, req.Phone, req.Address, req.Pincode, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "users", updateUserQuery, start, err)
	if isDuplicateKey(err) {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	// an unchanged profile affects zero rows, so a vanished account is
	// detected by the read
	user, err := s.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrLoginRequired
	}
	return user, err
}

func (s *UserService) identityTaken(ctx context.Context, query string, args ...any) (bool, error) {
	start := time.Now()
	var taken bool
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&taken)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check existing users: %w", err)
	}
	return taken, nil
}

func scanUser(row rowScanner, u *models.User) error {
	return row.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.Address, &u.Pincode, &u.PasswordHash, &u.CreatedAt)
}
