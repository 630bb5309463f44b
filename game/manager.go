package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when a player has no session yet.
var ErrSessionNotFound = errors.New("session not found")

// ListenerFactory 为新会话创建监听者
type ListenerFactory func(sessionID, playerID string) Listener

type entry struct {
	mu         sync.Mutex
	session    *Session
	lastUpdate time.Time
}

// Manager 按玩家 openid 保存会话。每次访问前按真实经过的时间推进会话，
// 所以服务端不需要为每局游戏跑一个循环。
type Manager struct {
	cfg         config.GameConfig
	ttl         time.Duration
	newListener ListenerFactory
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithListenerFactory attaches listeners to every new session.
func WithListenerFactory(f ListenerFactory) Option {
	return func(m *Manager) { m.newListener = f }
}

// NewManager 校验配置并创建会话管理器
func NewManager(cfg config.GameConfig, ttl time.Duration, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) newSession(playerID string) (*Session, error) {
	id := uuid.NewString()
	var listener Listener
	if m.newListener != nil {
		listener = m.newListener(id, playerID)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewSession(id, playerID, m.cfg, listener, rng, m.logger)
}

// lookup 取出玩家的会话，create 为 true 时不存在则新建
func (m *Manager) lookup(playerID string, create bool) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[playerID]; ok {
		return e, nil
	}
	if !create {
		return nil, ErrSessionNotFound
	}
	s, err := m.newSession(playerID)
	if err != nil {
		return nil, err
	}
	e := &entry{session: s, lastUpdate: m.now()}
	m.sessions[playerID] = e
	m.logger.Info("session created", zap.String("openid", playerID), zap.String("session", s.ID()))
	return e, nil
}

// updateIfNeeded 按上次访问以来经过的时间推进会话
func (m *Manager) updateIfNeeded(e *entry) {
	now := m.now()
	elapsed := now.Sub(e.lastUpdate).Seconds()
	if elapsed > 0 {
		e.session.Tick(elapsed)
	}
	e.lastUpdate = now
}

func (m *Manager) with(playerID string, create bool, fn func(s *Session)) error {
	e, err := m.lookup(playerID, create)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m.updateIfNeeded(e)
	fn(e.session)
	return nil
}

// Action 对玩家的会话执行一次点击，没有会话时先创建
func (m *Manager) Action(playerID string) (structs.Snapshot, *stack.Placement, error) {
	var (
		snap      structs.Snapshot
		placement *stack.Placement
	)
	err := m.with(playerID, true, func(s *Session) {
		placement = s.Action()
		snap = s.Snapshot()
	})
	return snap, placement, err
}

// Start 开始一局：idle 时开始，已结束时先换一局新的再开始，进行中不变
func (m *Manager) Start(playerID string) (structs.Snapshot, error) {
	e, err := m.lookup(playerID, true)
	if err != nil {
		return structs.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m.updateIfNeeded(e)

	if e.session.State() == structs.StateEnded {
		s, err := m.newSession(playerID)
		if err != nil {
			return structs.Snapshot{}, err
		}
		e.session = s
	}
	if e.session.State() == structs.StateIdle {
		e.session.Action()
	}
	return e.session.Snapshot(), nil
}

// Reset 为玩家换一局新的 idle 会话
func (m *Manager) Reset(playerID string) (structs.Snapshot, error) {
	e, err := m.lookup(playerID, true)
	if err != nil {
		return structs.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := m.newSession(playerID)
	if err != nil {
		return structs.Snapshot{}, err
	}
	e.session = s
	e.lastUpdate = m.now()
	return s.Snapshot(), nil
}

// Snapshot 返回玩家当前会话的状态
func (m *Manager) Snapshot(playerID string) (structs.Snapshot, error) {
	var snap structs.Snapshot
	err := m.with(playerID, false, func(s *Session) {
		snap = s.Snapshot()
	})
	return snap, err
}

// Delete 删除玩家的会话
func (m *Manager) Delete(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[playerID]
	delete(m.sessions, playerID)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict 删除超过 ttl 没有访问的会话，返回删除的数量
func (m *Manager) Evict() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		e.mu.Lock()
		idle := now.Sub(e.lastUpdate)
		e.mu.Unlock()
		if idle > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("sessions evicted", zap.Int("count", removed))
	}
	return removed
}

// Run 定期回收闲置会话，直到 ctx 结束
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Evict()
		}
	}
}
