package devserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const otpTTL = 5 * time.Minute

var (
	errEmailTaken   = errors.New("email already registered")
	errUserNotFound = errors.New("user not found")
	errBadOTP       = errors.New("invalid OTP")
	errOTPUsed      = errors.New("OTP already used")
	errOTPExpired   = errors.New("OTP expired")
)

type user struct {
	ID            int64
	Email         string
	PasswordHash  []byte
	Role          string
	EmailVerified bool
	CreatedAt     time.Time
}

// clone returns a copy that stays valid after the store's lock is released
func (u *user) clone() *user {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}

type otp struct {
	Code      string
	ExpiresAt time.Time
	Used      bool
}

// userStore is the in-memory account table
type userStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*user // by email
	otps   map[string]*otp  // latest passcode by email
}

func newUserStore() *userStore {
	return &userStore{
		nextID: 1,
		users:  make(map[string]*user),
		otps:   make(map[string]*otp),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userStore) create(email, password, role string, verified bool) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	if _, exists := s.users[email]; exists {
		return nil, errEmailTaken
	}

	u := &user{
		ID:            s.nextID,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		EmailVerified: verified,
		CreatedAt:     time.Now().UTC(),
	}
	s.nextID++
	s.users[email] = u
	return u.clone(), nil
}

// authenticate returns the user when the password matches
func (s *userStore) authenticate(email, password string) (*user, bool) {
	u, ok := s.byEmail(email)
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, false
	}
	return u, true
}

func (s *userStore) byEmail(email string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, false
	}
	return u.clone(), true
}

func (s *userStore) byID(id int64) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u.clone(), true
		}
	}
	return nil, false
}

func (s *userStore) list() []user {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *userStore) delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.ID == id {
			delete(s.users, email)
			delete(s.otps, email)
			return true
		}
	}
	return false
}

func (s *userStore) update(id int64, email, password string) error {
	var hash []byte
	if password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current *user
	for _, u := range s.users {
		if u.ID == id {
			current = u
			break
		}
	}
	if current == nil {
		return errUserNotFound
	}

	if email = normalizeEmail(email); email != "" && email != current.Email {
		if _, taken := s.users[email]; taken {
			return errEmailTaken
		}
		delete(s.users, current.Email)
		current.Email = email
		s.users[email] = current
	}
	if hash != nil {
		current.PasswordHash = hash
	}
	return nil
}

// issueOTP stores a fresh passcode for email, replacing any previous one
func (s *userStore) issueOTP(email string) (*otp, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return nil, fmt.Errorf("failed to generate passcode: %w", err)
	}
	o := &otp{
		Code:      fmt.Sprintf("%06d", n.Int64()+100000),
		ExpiresAt: time.Now().Add(otpTTL),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[normalizeEmail(email)] = o
	issued := *o
	return &issued, nil
}

// purgeExpired drops passcodes that expired before now, used or not
func (s *userStore) purgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for email, o := range s.otps {
		if now.After(o.ExpiresAt) {
			delete(s.otps, email)
			purged++
		}
	}
	return purged
}

// consumeOTP checks a passcode, marks it used and verifies the user's email
func (s *userStore) consumeOTP(email, code string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	o, ok := s.otps[email]
	if !ok || o.Code != code {
		return nil, errBadOTP
	}
	if o.Used {
		return nil, errOTPUsed
	}
	if time.Now().After(o.ExpiresAt) {
		return nil, errOTPExpired
	}

	u, ok := s.users[email]
	if !ok {
		return nil, errUserNotFound
	}
	o.Used = true
	u.EmailVerified = true
	return u.clone(), nil
}
