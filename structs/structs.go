package structs

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis 是移动块摆动的水平轴，取值即 Vec3 的下标。
type Axis int

const (
	AxisX Axis = 0
	AxisZ Axis = 2
)

// String returns "x" or "z".
func (a Axis) String() string {
	if a == AxisZ {
		return "z"
	}
	return "x"
}

// AxisForTier 偶数层沿 x 轴摆动，奇数层沿 z 轴。
func AxisForTier(tier int) Axis {
	if tier%2 == 0 {
		return AxisX
	}
	return AxisZ
}

// GameState 描述一局游戏的阶段。
type GameState string

const (
	StateIdle    GameState = "idle"
	StatePlaying GameState = "playing"
	StateEnded   GameState = "ended"
)

// Block 描述塔中一块已经落定的方块。
type Block struct {
	Position   mgl64.Vec3 `json:"position"`    // 中心坐标, y = 层数 * 块高
	Size       mgl64.Vec3 `json:"size"`        // 宽 高 深
	ColorIndex int        `json:"color_index"` // 调色板下标
	Color      string     `json:"color"`       // 十六进制颜色
	Tier       int        `json:"tier"`        // 0 为底座
	Perfect    bool       `json:"perfect"`     // 是否完美落下（未被裁剪）
}

// ActiveBlock 描述玩家正在操控、来回摆动的方块。
type ActiveBlock struct {
	Block    Block      `json:"block"`    // 模板，Position 为摆动中心
	Axis     Axis       `json:"axis"`     // 摆动轴
	Limit    float64    `json:"limit"`    // 振幅
	Speed    float64    `json:"speed"`    // 角速度 rad/s
	Phase    float64    `json:"phase"`    // 当前相位
	Position mgl64.Vec3 `json:"position"` // 当前世界坐标
}

// DebrisFragment 描述不完美落下时被切掉的碎块。
type DebrisFragment struct {
	ID              int64      `json:"id"`
	Position        mgl64.Vec3 `json:"position"`
	Size            mgl64.Vec3 `json:"size"`
	Velocity        mgl64.Vec3 `json:"velocity"`
	AngularVelocity mgl64.Vec3 `json:"angular_velocity"`
	Rotation        mgl64.Vec3 `json:"rotation"` // 欧拉角，不做归一化
	ColorIndex      int        `json:"color_index"`
	CreatedAt       float64    `json:"created_at"` // 模拟时钟，秒
}

// Ripple 是完美落下时的扩散波纹。
type Ripple struct {
	ID         int64      `json:"id"`
	Position   mgl64.Vec3 `json:"position"`
	Scale      float64    `json:"scale"`
	Opacity    float64    `json:"opacity"`
	ColorIndex int        `json:"color_index"`
}

// Camera 描述观察塔的相机。
type Camera struct {
	Position mgl64.Vec3 `json:"position"`
	LookAt   mgl64.Vec3 `json:"look_at"`
	Orbit    float64    `json:"orbit"` // 结束后环绕角度
}

// Snapshot 是一局游戏的只读拷贝，供接口和绘图使用。
type Snapshot struct {
	SessionID string           `json:"session_id"`
	PlayerID  string           `json:"player_id"`
	State     GameState        `json:"state"`
	Score     int              `json:"score"`
	Stack     []Block          `json:"stack"`
	Active    *ActiveBlock     `json:"active,omitempty"`
	Debris    []DebrisFragment `json:"debris"`
	Ripples   []Ripple         `json:"ripples"`
	Camera    Camera           `json:"camera"`
	Clock     float64          `json:"clock"` // 本局累计模拟时间，秒
}

// GameResult 是一局结束后交给账户服务保存的成绩。
type GameResult struct {
	ID       string    `json:"id"`
	PlayerID string    `json:"player_id"`
	Score    int       `json:"score"`
	Prize    string    `json:"prize"` // 本局达到的潜在奖品档位，可为空
	PlayedAt time.Time `json:"played_at"`
}
