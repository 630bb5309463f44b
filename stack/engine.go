// 叠塔的落块判定
package stack

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

// Outcome 是一次落块的结果
type Outcome int

const (
	Landed  Outcome = iota // 有裁剪，塔继续
	Perfect                // 完美落下，不裁剪
	Missed                 // 完全没有压到下面的块
	TooThin                // 裁剪后太窄，站不住
)

func (o Outcome) String() string {
	switch o {
	case Landed:
		return "landed"
	case Perfect:
		return "perfect"
	case Missed:
		return "missed"
	case TooThin:
		return "too_thin"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// GameOver reports whether the outcome ends the session.
func (o Outcome) GameOver() bool {
	return o == Missed || o == TooThin
}

// MarshalText lets the outcome appear as a word in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Placement 描述一次玩家操作的判定结果
type Placement struct {
	Outcome  Outcome                 `json:"outcome"`
	Block    *structs.Block          `json:"block,omitempty"`  // 落定的新块，游戏结束时为空
	Debris   *structs.DebrisFragment `json:"debris,omitempty"` // 切掉的碎块
	Ripple   *structs.Ripple         `json:"ripple,omitempty"` // 完美落下的波纹
	Delta    float64                 `json:"delta"`            // 沿摆动轴的偏移（完美时为 0）
	Overhang float64                 `json:"overhang"`         // 实测的偏移绝对值
}

// Engine 负责落块判定，持有配置和随机源
type Engine struct {
	cfg      config.GameConfig
	rng      *rand.Rand
	debrisID int64
	rippleID int64
}

// NewEngine validates cfg up front; a bad config never reaches a running session.
func NewEngine(cfg config.GameConfig, rng *rand.Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Engine{cfg: cfg, rng: rng}, nil
}

// Config returns the constants the engine was built with.
func (e *Engine) Config() config.GameConfig {
	return e.cfg
}

// Rand exposes the engine's random source so debris stepping shares it.
func (e *Engine) Rand() *rand.Rand {
	return e.rng
}

// BaseBlock 返回第 0 层底座
func (e *Engine) BaseBlock() structs.Block {
	colorIndex, hex := ColorForTier(0)
	return structs.Block{
		Size:       mgl64.Vec3{e.cfg.InitialSize, e.cfg.BlockHeight, e.cfg.InitialSize},
		ColorIndex: colorIndex,
		Color:      hex,
	}
}

// Spawn 在 prev 上方生成下一块移动块
func (e *Engine) Spawn(prev structs.Block) structs.ActiveBlock {
	return NewActiveBlock(e.cfg, prev)
}

// ResolvePlacement 在玩家操作的瞬间判定移动块落在 prev 上的结果。
// clock 是本局的模拟时钟，用来给碎块打时间戳。
func (e *Engine) ResolvePlacement(prev structs.Block, active structs.ActiveBlock, clock float64) Placement {
	axis := int(active.Axis)
	current := active.Position
	size := prev.Size[axis]

	delta := current[axis] - prev.Position[axis]
	overhang := math.Abs(delta)
	result := Placement{Overhang: overhang, Delta: delta}

	// 完全错开
	if overhang >= size {
		result.Outcome = Missed
		return result
	}

	newPos := prev.Position
	newPos[1] += e.cfg.BlockHeight
	newSize := prev.Size

	perfect := overhang < e.cfg.PerfectThreshold
	if perfect {
		result.Delta = 0
		result.Outcome = Perfect
		e.rippleID++
		result.Ripple = &structs.Ripple{
			ID:         e.rippleID,
			Position:   mgl64.Vec3{newPos[0], newPos[1] - e.cfg.BlockHeight/2, newPos[2]},
			Scale:      1,
			Opacity:    rippleOpacity,
			ColorIndex: active.Block.ColorIndex,
		}
	} else {
		result.Outcome = Landed
		newSize[axis] = size - overhang
		newPos[axis] = prev.Position[axis] + delta/2
		frag := e.newDebris(prev, active, delta, overhang, clock)
		result.Debris = &frag
	}

	if newSize[axis] < e.cfg.MinSize {
		result.Outcome = TooThin
		return result
	}

	result.Block = &structs.Block{
		Position:   newPos,
		Size:       newSize,
		ColorIndex: active.Block.ColorIndex,
		Color:      active.Block.Color,
		Tier:       active.Block.Tier,
		Perfect:    perfect,
	}
	return result
}

// newDebris 生成被切掉的部分，放在下面块的外沿并向外上方弹出
func (e *Engine) newDebris(prev structs.Block, active structs.ActiveBlock, delta, overhang float64, clock float64) structs.DebrisFragment {
	axis := int(active.Axis)
	sign := math.Copysign(1, delta)

	size := prev.Size
	size[axis] = overhang

	pos := active.Position
	pos[axis] = prev.Position[axis] + sign*(prev.Size[axis]/2+overhang/2)

	var vel mgl64.Vec3
	vel[1] = 5
	for _, a := range []int{int(structs.AxisX), int(structs.AxisZ)} {
		if a == axis {
			vel[a] = sign * 3
		} else {
			vel[a] = e.rng.Float64() - 0.5
		}
	}

	e.debrisID++
	return structs.DebrisFragment{
		ID:              e.debrisID,
		Position:        pos,
		Size:            size,
		Velocity:        vel,
		AngularVelocity: mgl64.Vec3{e.rng.Float64() * 5, e.rng.Float64() * 5, e.rng.Float64() * 5},
		ColorIndex:      active.Block.ColorIndex,
		CreatedAt:       clock,
	}
}
