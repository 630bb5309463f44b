package stack

import (
	"math/rand"

	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

const (
	bounceDamping  = -0.4 // 反弹后竖直速度的倍数
	bouncePushOut  = 0.5  // 穿透量推回的比例
	deflectFactor  = 5.0  // 按离块中心的水平偏移产生侧向速度
	impactSpinSpan = 10.0 // 碰撞时随机角速度冲量范围 [-5, 5)
)

// StepDebris 推进单个碎块 dt 秒，只与 stack 顶部的 K 块做碰撞
func StepDebris(cfg config.GameConfig, frag structs.DebrisFragment, stack []structs.Block, dt float64, rng *rand.Rand) structs.DebrisFragment {
	if dt <= 0 {
		return frag
	}

	frag.Velocity[1] += cfg.Gravity * dt
	frag.Position = frag.Position.Add(frag.Velocity.Mul(dt))
	frag.Rotation = frag.Rotation.Add(frag.AngularVelocity.Mul(dt))

	lowest := len(stack) - cfg.CollisionWindow
	if lowest < 0 {
		lowest = 0
	}
	for i := len(stack) - 1; i >= lowest; i-- {
		block := stack[i]
		if !Overlaps(frag.Position, frag.Size, block.Position, block.Size) {
			continue
		}
		// 只处理从上方落下的情况
		penetration := (block.Position[1] + block.Size[1]/2) - (frag.Position[1] - frag.Size[1]/2)
		if penetration <= 0 || frag.Velocity[1] >= 0 {
			continue
		}
		frag.Position[1] += penetration * bouncePushOut
		frag.Velocity[1] *= bounceDamping
		frag.Velocity[0] += (frag.Position[0] - block.Position[0]) * deflectFactor
		frag.Velocity[2] += (frag.Position[2] - block.Position[2]) * deflectFactor
		frag.AngularVelocity[0] += (rng.Float64() - 0.5) * impactSpinSpan
		frag.AngularVelocity[2] += (rng.Float64() - 0.5) * impactSpinSpan
	}
	return frag
}

// StepDebrisPool 推进所有碎块，并移除掉出可视范围的碎块
func StepDebrisPool(cfg config.GameConfig, pool []structs.DebrisFragment, stack []structs.Block, dt float64, rng *rand.Rand) []structs.DebrisFragment {
	kept := pool[:0]
	for _, frag := range pool {
		frag = StepDebris(cfg, frag, stack, dt, rng)
		if frag.Position[1] < -cfg.DebrisCullDepth {
			continue
		}
		kept = append(kept, frag)
	}
	return kept
}

// PushDebris 加入新碎块，超过上限时丢弃最旧的
func PushDebris(pool []structs.DebrisFragment, frag structs.DebrisFragment, limit int) []structs.DebrisFragment {
	pool = append(pool, frag)
	if over := len(pool) - limit; over > 0 {
		pool = append(pool[:0], pool[over:]...)
	}
	return pool
}
