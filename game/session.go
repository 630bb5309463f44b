package game

import (
	"math"
	"math/rand"

	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"go.uber.org/zap"
)

// 一次 Tick 最多拆成的子步数，长时间未更新的会话追帧时用
const maxSubsteps = 600

// Session 是一局游戏，独占塔、碎块和分数。
// Session 不是并发安全的，调用方需要保证同一时刻只有一个 goroutine 操作它。
type Session struct {
	id       string
	playerID string
	engine   *stack.Engine
	listener Listener
	logger   *zap.Logger

	state   structs.GameState
	score   int
	stack   []structs.Block
	active  *structs.ActiveBlock
	debris  []structs.DebrisFragment
	ripples []structs.Ripple
	camera  structs.Camera
	clock   float64
	over    bool // OnGameOver 已经报告过
}

// NewSession 创建一局处于 idle 的游戏，塔上只有底座
func NewSession(id, playerID string, cfg config.GameConfig, listener Listener, rng *rand.Rand, logger *zap.Logger) (*Session, error) {
	engine, err := stack.NewEngine(cfg, rng)
	if err != nil {
		return nil, err
	}
	if listener == nil {
		listener = ListenerFuncs{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		id:       id,
		playerID: playerID,
		engine:   engine,
		listener: listener,
		logger:   logger.With(zap.String("session", id), zap.String("openid", playerID)),
	}
	s.Reset()
	return s, nil
}

func (s *Session) ID() string                { return s.id }
func (s *Session) PlayerID() string          { return s.playerID }
func (s *Session) State() structs.GameState  { return s.state }
func (s *Session) Score() int                { return s.score }
func (s *Session) Config() config.GameConfig { return s.engine.Config() }

// Reset 回到 idle：底座重建，碎块、波纹和分数清空
func (s *Session) Reset() {
	s.state = structs.StateIdle
	s.score = 0
	s.stack = []structs.Block{s.engine.BaseBlock()}
	s.active = nil
	s.debris = nil
	s.ripples = nil
	s.camera = stack.NewCamera()
	s.clock = 0
	s.over = false
}

// Action 处理玩家的一次点击。
// idle 时开始游戏并返回 nil；playing 时判定落块并返回结果；ended 时忽略。
func (s *Session) Action() *stack.Placement {
	switch s.state {
	case structs.StateIdle:
		s.start()
		return nil
	case structs.StatePlaying:
		if s.active == nil {
			return nil
		}
		p := s.resolve()
		return &p
	default:
		return nil
	}
}

func (s *Session) start() {
	s.state = structs.StatePlaying
	active := s.engine.Spawn(s.top())
	s.active = &active
	s.logger.Debug("game started")
	s.listener.OnGameStart()
}

func (s *Session) resolve() stack.Placement {
	cfg := s.engine.Config()
	p := s.engine.ResolvePlacement(s.top(), *s.active, s.clock)

	if p.Debris != nil {
		s.debris = stack.PushDebris(s.debris, *p.Debris, cfg.DebrisCap)
	}
	if p.Ripple != nil {
		s.ripples = stack.PushRipple(s.ripples, *p.Ripple, cfg.RippleCap)
	}

	if p.Outcome.GameOver() {
		s.end(p)
		return p
	}

	s.stack = append(s.stack, *p.Block)
	s.score++
	s.logger.Debug("block landed",
		zap.Stringer("outcome", p.Outcome),
		zap.Int("score", s.score),
		zap.Float64("overhang", p.Overhang))
	s.listener.OnScoreUpdate(s.score)

	next := s.engine.Spawn(*p.Block)
	s.active = &next
	return p
}

func (s *Session) end(p stack.Placement) {
	s.state = structs.StateEnded
	s.active = nil
	if s.over {
		return
	}
	s.over = true
	s.logger.Info("game over",
		zap.Stringer("outcome", p.Outcome),
		zap.Int("score", s.score),
		zap.Float64("overhang", p.Overhang))
	s.listener.OnGameOver(s.score)
}

// Tick 推进模拟 dt 秒。移动块按解析式一次推进，
// 碎块、波纹和相机拆成不超过 MaxStep 的子步积分。
func (s *Session) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	cfg := s.engine.Config()
	if s.active != nil && s.state == structs.StatePlaying {
		next := stack.Oscillate(*s.active, dt)
		s.active = &next
	}

	steps := int(math.Ceil(dt / cfg.MaxStep))
	if steps > maxSubsteps {
		steps = maxSubsteps
	}
	step := dt / float64(steps)
	ended := s.state == structs.StateEnded
	for i := 0; i < steps; i++ {
		s.clock += step
		s.debris = stack.StepDebrisPool(cfg, s.debris, s.stack, step, s.engine.Rand())
		s.ripples = stack.StepRipples(s.ripples, step)
		s.camera = stack.StepCamera(s.camera, s.TowerHeight(), ended, step)
	}
}

// TowerHeight 是当前塔的总高度
func (s *Session) TowerHeight() float64 {
	return float64(len(s.stack)) * s.engine.Config().BlockHeight
}

func (s *Session) top() structs.Block {
	return s.stack[len(s.stack)-1]
}

// Snapshot 返回当前状态的拷贝
func (s *Session) Snapshot() structs.Snapshot {
	snap := structs.Snapshot{
		SessionID: s.id,
		PlayerID:  s.playerID,
		State:     s.state,
		Score:     s.score,
		Stack:     append([]structs.Block(nil), s.stack...),
		Debris:    append([]structs.DebrisFragment{}, s.debris...),
		Ripples:   append([]structs.Ripple{}, s.ripples...),
		Camera:    s.camera,
		Clock:     s.clock,
	}
	if s.active != nil {
		active := *s.active
		snap.Active = &active
	}
	return snap
}
