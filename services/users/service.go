package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"homestead/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrEmailRequired      = errors.New("email is required")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidRole        = errors.New("unknown role")
	ErrCannotDemoteAdmin  = errors.New("cannot change role of the bootstrap admin")
)

const (
	// DefaultAdminPassword is the initial password for the bootstrap admin.
	// Operators should be warned to change this immediately.
	DefaultAdminPassword = "admin"

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// resetPasswordLength is the length of admin-generated passwords.
	resetPasswordLength = 16
)

// NewUserData carries the fields accepted at registration.
type NewUserData struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Service manages persistence of user accounts.
type Service struct {
	mu    sync.RWMutex
	path  string
	users map[string]models.User
}

// NewService creates a users service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}

	svc := &Service{
		path:  filepath.Join(storageDir, "users.json"),
		users: make(map[string]models.User),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	if err := svc.ensureAdminAccount(); err != nil {
		return nil, err
	}

	return svc, nil
}

// List returns all users sorted by creation time, admins first.
func (s *Service) List() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		ai, aj := users[i].Role == models.RoleAdmin, users[j].Role == models.RoleAdmin
		if ai != aj {
			return ai
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users
}

// Get returns the user with the given ID if present.
func (s *Service) Get(id string) (models.User, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.User{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	return user, ok
}

// GetByEmail returns the user with the given email if present.
func (s *Service) GetByEmail(email string) (models.User, bool) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return models.User{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return u, true
		}
	}
	return models.User{}, false
}

// Create registers a new account. New accounts always start with the USER role;
// role changes are an admin operation.
func (s *Service) Create(data NewUserData) (models.User, error) {
	email := strings.TrimSpace(strings.ToLower(data.Email))
	if email == "" {
		return models.User{}, ErrEmailRequired
	}

	username := strings.TrimSpace(data.Username)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}

	if len(strings.TrimSpace(data.Password)) < MinPasswordLength {
		return models.User{}, fmt.Errorf("%w: minimum %d characters", ErrPasswordRequired, MinPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lowerUsername := strings.ToLower(username)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return models.User{}, ErrEmailExists
		}
		if strings.ToLower(u.Username) == lowerUsername {
			return models.User{}, ErrUsernameExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	user := models.User{
		ID:           id,
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(data.FirstName),
		LastName:     strings.TrimSpace(data.LastName),
		Role:         models.RoleUser,
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.users[id] = user

	if err := s.saveLocked(); err != nil {
		delete(s.users, id)
		return models.User{}, err
	}

	return user, nil
}

// Authenticate verifies email and password, returning the user if valid.
// Disabled accounts fail with ErrAccountDisabled even with correct credentials.
func (s *Service) Authenticate(email, password string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var user models.User
	found := false
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			user = u
			found = true
			break
		}
	}

	if !found {
		// Use bcrypt comparison anyway to prevent timing attacks
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy"), []byte(password))
		return models.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return models.User{}, ErrAccountDisabled
	}

	return user, nil
}

// SetRole changes a user's role. The bootstrap admin keeps ADMIN.
func (s *Service) SetRole(id string, role models.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if user.ID == models.AdminUserID && role != models.RoleAdmin {
		return ErrCannotDemoteAdmin
	}

	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user

	return s.saveLocked()
}

// SetActive enables or disables a user account.
func (s *Service) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user

	return s.saveLocked()
}

// UpdatePassword changes the password for a user.
func (s *Service) UpdatePassword(id, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < MinPasswordLength {
		return fmt.Errorf("%w: minimum %d characters", ErrPasswordRequired, MinPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user

	return s.saveLocked()
}

// ResetPassword generates a new random password for a user and returns it.
// The plaintext is returned exactly once; only the hash is stored.
func (s *Service) ResetPassword(id string) (string, error) {
	generated, err := password.Generate(resetPasswordLength, 4, 2, false, false)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}

	if err := s.UpdatePassword(id, generated); err != nil {
		return "", err
	}

	return generated, nil
}

// HasDefaultPassword checks if the bootstrap admin still has the default password.
func (s *Service) HasDefaultPassword() bool {
	s.mu.RLock()
	admin, ok := s.users[models.AdminUserID]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(DefaultAdminPassword))
	return err == nil
}

// ensureAdminAccount creates the bootstrap admin if no admin exists.
func (s *Service) ensureAdminAccount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Role == models.RoleAdmin {
			return nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}

	now := time.Now().UTC()
	admin := models.User{
		ID:           models.AdminUserID,
		Email:        models.AdminEmail,
		Username:     "admin",
		Role:         models.RoleAdmin,
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.users[admin.ID] = admin

	return s.saveLocked()
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open users file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	var stored []models.UserStorage
	if err := dec.Decode(&stored); err != nil {
		return fmt.Errorf("decode users: %w", err)
	}

	s.users = make(map[string]models.User, len(stored))
	for _, userStorage := range stored {
		if strings.TrimSpace(userStorage.ID) == "" {
			continue
		}
		user := userStorage.ToUser()
		if !user.Role.Valid() {
			user.Role = models.RoleUser
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		if user.UpdatedAt.IsZero() {
			user.UpdatedAt = user.CreatedAt
		}
		s.users[user.ID] = user
	}

	return nil
}

func (s *Service) saveLocked() error {
	// Convert to storage format (includes password hash)
	storage := make([]models.UserStorage, 0, len(s.users))
	for _, user := range s.users {
		storage = append(storage, user.ToStorage())
	}

	sort.Slice(storage, func(i, j int) bool {
		ai, aj := storage[i].Role == models.RoleAdmin, storage[j].Role == models.RoleAdmin
		if ai != aj {
			return ai
		}
		return storage[i].CreatedAt.Before(storage[j].CreatedAt)
	})

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create users temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(storage); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode users: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync users: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close users temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}

	return nil
}
