package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/repository"
)

// Session state keys. Every page keeps its own document so a lock on one page
// never blocks another.
const (
	keyApp      = "app"
	keyUpload   = "upload"
	keyChat     = "chat"
	keyHomework = "homework"
	keyExam     = "exam"
	keyLearning = "learning"
	keyTeacher  = "teacher"
)

// Identity is the demo identity forwarded to the backend.
type Identity struct {
	StudentID string
	TeacherID string
}

const (
	DefaultStudentID = "student_demo"
	DefaultTeacherID = "teacher_demo"
)

func (i Identity) student() string {
	if i.StudentID == "" {
		return DefaultStudentID
	}
	return i.StudentID
}

func (i Identity) teacher() string {
	if i.TeacherID == "" {
		return DefaultTeacherID
	}
	return i.TeacherID
}

// SessionPages loads and stores page state for one browser session.
type SessionPages struct {
	store   repository.SessionStore
	lockTTL time.Duration
	now     func() time.Time
}

// NewSessionPages wraps a session store.
func NewSessionPages(store repository.SessionStore, lockTTL time.Duration) *SessionPages {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &SessionPages{store: store, lockTTL: lockTTL, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (p *SessionPages) WithClock(now func() time.Time) *SessionPages {
	p.now = now
	return p
}

// AppState returns the shared state of a session.
func (p *SessionPages) AppState(ctx context.Context, sessionID string) (models.AppState, error) {
	var state models.AppState
	err := p.load(ctx, sessionID, keyApp, &state)
	return state, err
}

func (p *SessionPages) saveAppState(ctx context.Context, sessionID string, state models.AppState) error {
	return p.save(ctx, sessionID, keyApp, state)
}

func (p *SessionPages) load(ctx context.Context, sessionID, key string, dest interface{}) error {
	if _, err := p.store.Load(ctx, sessionID, key, dest); err != nil {
		return fmt.Errorf("load %s state: %w", key, err)
	}
	return nil
}

func (p *SessionPages) save(ctx context.Context, sessionID, key string, value interface{}) error {
	if err := p.store.Save(context.WithoutCancel(ctx), sessionID, key, value); err != nil {
		return fmt.Errorf("save %s state: %w", key, err)
	}
	return nil
}

// lock guards one page action per session. A held lock maps to ErrActionInFlight.
// The lease is refreshed until release, so a backend call may outlast lockTTL;
// lockTTL only bounds how long a crashed process keeps the page busy.
func (p *SessionPages) lock(ctx context.Context, sessionID, key string) (func(), error) {
	lease, err := p.store.TryLock(ctx, sessionID, key, p.lockTTL)
	if errors.Is(err, repository.ErrLocked) {
		return nil, ErrActionInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go p.keepAlive(context.WithoutCancel(ctx), lease, done, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			_ = lease.Release(context.WithoutCancel(ctx))
		})
	}, nil
}

func (p *SessionPages) keepAlive(ctx context.Context, lease *repository.Lease, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := p.lockTTL / 3
	if interval <= 0 {
		interval = p.lockTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := lease.Refresh(ctx, p.lockTTL); err != nil {
				return
			}
		}
	}
}

// tryLock is lock for mount-time refreshes: a busy page is rendered as is.
func (p *SessionPages) tryLock(ctx context.Context, sessionID, key string) (func(), bool, error) {
	release, err := p.lock(ctx, sessionID, key)
	if errors.Is(err, ErrActionInFlight) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return release, true, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
