package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrNoPendingCode = errors.New("no pending code")
)

type UserRepository struct{ db *DB }

type TokenRepository struct{ db *DB }

type CodeRepository struct{ db *DB }

type BanCacheRepository struct{ db *DB }

type Lock struct{ db *DB }

var (
	_ service.UserStore  = (*UserRepository)(nil) // interface compliance check
	_ service.TokenStore = (*TokenRepository)(nil)
	_ service.CodeStore  = (*CodeRepository)(nil)
	_ service.BanCache   = (*BanCacheRepository)(nil)
	_ service.Locker     = (*Lock)(nil)
	_ service.Mailer     = (*Mailer)(nil)
)

func NewUserRepository(db *DB) *UserRepository { return &UserRepository{db: db} }
func NewTokenRepository(db *DB) *TokenRepository { return &TokenRepository{db: db} }
func NewCodeRepository(db *DB) *CodeRepository { return &CodeRepository{db: db} }
func NewBanCacheRepository(db *DB) *BanCacheRepository { return &BanCacheRepository{db: db} }
func NewLock(db *DB) *Lock { return &Lock{db: db} }

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Username == user.Username || u.Email == user.Email {
			return pkg.ErrConflict
		}
	}
	user.ID = r.db.nextID()
	user.CreatedAt = r.db.now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *UserRepository) FindByLogin(_ context.Context, login string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pkg.ErrNotFound
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pkg.ErrNotFound
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uint64, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return pkg.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (r *UserRepository) SetBanned(_ context.Context, id uint64, banned bool, reason string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return pkg.ErrNotFound
	}
	u.Banned, u.BanReason = banned, reason
	if banned {
		now := r.db.now()
		u.BannedAt = &now
	} else {
		u.BannedAt = nil
	}
	return nil
}

func (r *UserRepository) ListIDs(_ context.Context, afterID uint64, limit int) ([]uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var ids []uint64
	for _, id := range sortedKeys(r.db.users) {
		if id > afterID && !r.db.users[id].Banned {
			ids = append(ids, id)
		}
	}
	return window(ids, 0, limit), nil
}

// SetRole is a test helper; there is no endpoint that changes roles.
func (r *UserRepository) SetRole(id uint64, role int) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		u.Role = role
	}
}

func (r *TokenRepository) AddUserToken(_ context.Context, userID uint64, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.tokens[userID] = token
	return nil
}

func (r *TokenRepository) GetUserToken(_ context.Context, userID uint64) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tokens[userID]
	if !ok {
		return "", ErrTokenNotFound
	}
	return t, nil
}

func (r *TokenRepository) ExtendUserToken(_ context.Context, userID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tokens[userID]; !ok {
		return ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteUserToken(_ context.Context, userID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.tokens, userID)
	return nil
}

func codeKey(scope, stage, email string) string {
	return fmt.Sprintf("%s:%s:%s", scope, stage, email)
}

func (r *CodeRepository) SavePending(_ context.Context, scope, email, code string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.codes[codeKey(scope, "pending", email)] = code
	return nil
}

func (r *CodeRepository) Confirm(_ context.Context, scope, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	src := codeKey(scope, "pending", email)
	code, ok := r.db.codes[src]
	if !ok {
		return ErrNoPendingCode
	}
	delete(r.db.codes, src)
	r.db.codes[codeKey(scope, "confirmed", email)] = code
	return nil
}

func (r *CodeRepository) DeletePending(_ context.Context, scope, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.codes, codeKey(scope, "pending", email))
	return nil
}

func (r *CodeRepository) GetConfirmed(_ context.Context, scope, email string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	code, ok := r.db.codes[codeKey(scope, "confirmed", email)]
	if !ok {
		return "", pkg.ErrNotFound
	}
	return code, nil
}

func (r *CodeRepository) DeleteConfirmed(_ context.Context, scope, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.codes, codeKey(scope, "confirmed", email))
	return nil
}

func (r *BanCacheRepository) Get(_ context.Context, userID uint64) (model.BanStatus, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st, ok := r.db.bans[userID]
	return st, ok, nil
}

func (r *BanCacheRepository) Set(_ context.Context, userID uint64, status model.BanStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.bans[userID] = status
	return nil
}

func (r *BanCacheRepository) Delete(_ context.Context, userID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.bans, userID)
	return nil
}

// Acquire 与 SETNX 语义一致：未过期的持有者存在时失败
func (l *Lock) Acquire(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	now := l.db.now()
	if e, ok := l.db.locks[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	l.db.locks[key] = lockEntry{token: token, expires: now.Add(ttl)}
	return true, nil
}

func (l *Lock) Release(_ context.Context, key, token string) error {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	if e, ok := l.db.locks[key]; ok && e.token == token {
		delete(l.db.locks, key)
	}
	return nil
}

// Hold takes key with a foreign token, simulating another instance holding the lock.
func (l *Lock) Hold(key string, ttl time.Duration) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	l.db.locks[key] = lockEntry{token: "held", expires: l.db.now().Add(ttl)}
}

type Mail struct {
	To, Subject, Body string
}

// Mailer records outgoing mail. Set Err to make Send fail.
type Mailer struct {
	mu   sync.Mutex
	Sent []Mail
	Err  error
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Mail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *Mailer) Last() (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return Mail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
