package stack

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

// 初始相位在振幅最远端，而不是中心
const initialPhase = math.Pi / 2

// SpeedForTier 计算某一层移动块的角速度
func SpeedForTier(cfg config.GameConfig, tier int) float64 {
	return math.Min(cfg.BaseSpeed+cfg.SpeedIncrement*float64(tier), cfg.MaxSpeed)
}

// NewActiveBlock 在 prev 的上一层生成新的移动块
func NewActiveBlock(cfg config.GameConfig, prev structs.Block) structs.ActiveBlock {
	tier := prev.Tier + 1
	colorIndex, hex := ColorForTier(tier)
	base := prev.Position
	base[1] += cfg.BlockHeight

	active := structs.ActiveBlock{
		Block: structs.Block{
			Position:   base,
			Size:       prev.Size,
			ColorIndex: colorIndex,
			Color:      hex,
			Tier:       tier,
		},
		Axis:  structs.AxisForTier(tier),
		Limit: cfg.Amplitude,
		Speed: SpeedForTier(cfg, tier),
		Phase: initialPhase,
	}
	active.Position = OscillatorPosition(active)
	return active
}

// OscillatorPosition 由相位算出移动块当前的世界坐标
func OscillatorPosition(active structs.ActiveBlock) mgl64.Vec3 {
	pos := active.Block.Position
	pos[active.Axis] += math.Sin(active.Phase) * active.Limit
	return pos
}

// Oscillate 按经过的时间推进相位，与帧率无关
func Oscillate(active structs.ActiveBlock, dt float64) structs.ActiveBlock {
	if dt <= 0 {
		return active
	}
	active.Phase += active.Speed * dt
	active.Position = OscillatorPosition(active)
	return active
}
