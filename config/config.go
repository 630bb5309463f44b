package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// GameConfig 游戏模拟用到的全部常量
type GameConfig struct {
	InitialSize      float64 `json:"initial_size"`      // 底座边长
	BlockHeight      float64 `json:"block_height"`      // 每层高度
	MinSize          float64 `json:"min_size"`          // 低于此宽度游戏结束
	BaseSpeed        float64 `json:"base_speed"`        // 初始角速度 rad/s
	MaxSpeed         float64 `json:"max_speed"`         // 角速度上限
	SpeedIncrement   float64 `json:"speed_increment"`   // 每层增加的角速度
	Amplitude        float64 `json:"amplitude"`         // 摆动振幅
	PerfectThreshold float64 `json:"perfect_threshold"` // 完美落下的容差
	Gravity          float64 `json:"gravity"`           // 碎块重力加速度，负数
	DebrisCap        int     `json:"debris_cap"`        // 同时存在的碎块上限
	CollisionWindow  int     `json:"collision_window"`  // 碎块只与最上面 K 块碰撞
	DebrisCullDepth  float64 `json:"debris_cull_depth"` // 碎块掉到底座以下多深后移除
	RippleCap        int     `json:"ripple_cap"`        // 同时存在的波纹上限
	MaxStep          float64 `json:"max_step"`          // 单次积分的最大步长，秒
}

// DefaultGameConfig returns the tuned defaults of the campaign build.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		InitialSize:      3,
		BlockHeight:      1,
		MinSize:          0.1,
		BaseSpeed:        0.035 * 65,
		MaxSpeed:         0.035 * 65,
		SpeedIncrement:   0,
		Amplitude:        5.2,
		PerfectThreshold: 0.15,
		Gravity:          -25,
		DebrisCap:        15,
		CollisionWindow:  6,
		DebrisCullDepth:  30,
		RippleCap:        6,
		MaxStep:          1.0 / 60,
	}
}

// Validate reports every constant that would break the simulation.
func (c GameConfig) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	positive("initial_size", c.InitialSize)
	positive("block_height", c.BlockHeight)
	positive("min_size", c.MinSize)
	positive("base_speed", c.BaseSpeed)
	positive("max_speed", c.MaxSpeed)
	positive("amplitude", c.Amplitude)
	positive("debris_cull_depth", c.DebrisCullDepth)
	positive("max_step", c.MaxStep)
	if c.PerfectThreshold < 0 {
		errs = append(errs, fmt.Errorf("perfect_threshold must not be negative, got %v", c.PerfectThreshold))
	}
	if c.SpeedIncrement < 0 {
		errs = append(errs, fmt.Errorf("speed_increment must not be negative, got %v", c.SpeedIncrement))
	}
	if c.MaxSpeed < c.BaseSpeed {
		errs = append(errs, fmt.Errorf("max_speed %v is below base_speed %v", c.MaxSpeed, c.BaseSpeed))
	}
	if c.MinSize >= c.InitialSize {
		errs = append(errs, fmt.Errorf("min_size %v must be below initial_size %v", c.MinSize, c.InitialSize))
	}
	if !(c.Gravity < 0) {
		errs = append(errs, fmt.Errorf("gravity must be negative, got %v", c.Gravity))
	}
	if c.DebrisCap < 1 {
		errs = append(errs, fmt.Errorf("debris_cap must be at least 1, got %d", c.DebrisCap))
	}
	if c.CollisionWindow < 1 {
		errs = append(errs, fmt.Errorf("collision_window must be at least 1, got %d", c.CollisionWindow))
	}
	if c.RippleCap < 1 {
		errs = append(errs, fmt.Errorf("ripple_cap must be at least 1, got %d", c.RippleCap))
	}
	return errors.Join(errs...)
}

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath     string     `json:"selfpath"`
	Port         string     `json:"port"`
	Storage      string     `json:"storage"`       // sqlite 或 bolt
	DBPath       string     `json:"db_path"`       // 数据库文件
	RenderUnit   int        `json:"render_unit"`   // 绘图时 1 单位对应的像素
	SessionTTL   int        `json:"session_ttl"`   // 闲置多少秒后回收会话
	LiveInterval int        `json:"live_interval"` // /ws 推送快照的间隔，毫秒，0 关闭
	Debug        bool       `json:"debug"`
	Game         GameConfig `json:"game"`
}

var (
	instance *AppConfig
	once     sync.Once
)

func defaults() *AppConfig {
	return &AppConfig{
		SelfPath:     "127.0.0.1:38870", // Default value
		Port:         "38870",           // Default value
		Storage:      "sqlite",
		DBPath:       "game.db",
		RenderUnit:   24,
		SessionTTL:   1800,
		LiveInterval: 50,
		Game:         DefaultGameConfig(),
	}
}

// LoadConfig initializes and returns the instance of AppConfig
func LoadConfig(filePath string) *AppConfig {
	once.Do(func() {
		instance = defaults()
		// Load the config file if it exists, otherwise create one
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			saveConfig(filePath)
		} else {
			loadConfig(filePath)
		}
	})
	return instance
}

// ReadConfig 不经过单例读取配置文件，缺省字段保留默认值
func ReadConfig(filePath string) (*AppConfig, error) {
	cfg := defaults()
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return cfg, nil
}

// loadConfig loads the settings from the file
func loadConfig(filePath string) {
	cfg, err := ReadConfig(filePath)
	if err != nil {
		panic(err)
	}
	instance = cfg
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string) {
	file, err := os.Create(filePath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(instance); err != nil {
		panic(err)
	}
}

// GetConfigValue returns the value of the configuration by key
func GetConfigValue(key string) interface{} {
	switch key {
	case "selfpath":
		return instance.SelfPath
	case "port":
		return instance.Port
	case "storage":
		return instance.Storage
	case "db_path":
		return instance.DBPath
	case "render_unit":
		return instance.RenderUnit
	case "session_ttl":
		return instance.SessionTTL
	case "live_interval":
		return instance.LiveInterval
	case "debug":
		return instance.Debug
	default:
		return ""
	}
}

// GetGameConfig 返回游戏常量
func GetGameConfig() GameConfig {
	return instance.Game
}
