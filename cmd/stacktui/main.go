// stacktui 在终端里玩一局本地的堆叠游戏
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"go.uber.org/zap"
)

type app struct {
	screen  tcell.Screen
	session *game.Session
	sounds  *sounds
	logger  *zap.Logger
	last    time.Time
	pressed bool // 鼠标左键按下中
}

func main() {
	configPath := flag.String("config", "./config.json", "config file; defaults are used when missing")
	logPath := flag.String("log", "stacktui.log", "log file")
	flag.Parse()

	logger, err := newFileLogger(*logPath)
	if err != nil {
		log.Fatalf("Failed to create logger: %s", err)
	}
	defer logger.Sync()

	gameCfg, err := loadGameConfig(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.String("path", *configPath), zap.Error(err))
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Fatal("create screen", zap.Error(err))
	}
	if err := screen.Init(); err != nil {
		logger.Fatal("init screen", zap.Error(err))
	}
	screen.EnableMouse()

	a, err := newApp(screen, gameCfg, logger)
	if err != nil {
		screen.Fini()
		logger.Fatal("create session", zap.Error(err))
	}
	a.run()
	screen.Fini()
	a.sounds.close()
	fmt.Printf("final score %d\n", a.session.Score())
}

func newApp(screen tcell.Screen, cfg config.GameConfig, logger *zap.Logger) (*app, error) {
	a := &app{screen: screen, logger: logger, last: time.Now()}

	snd, err := newSounds()
	if err != nil {
		// 没有声卡也能玩
		logger.Warn("audio init failed", zap.Error(err))
	}
	a.sounds = snd

	listener := game.ListenerFuncs{
		Start: func() { a.sounds.play(cueStart) },
		GameOver: func(finalScore int) {
			logger.Info("game over", zap.Int("score", finalScore))
		},
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	session, err := game.NewSession("local", "local", cfg, listener, rng, logger)
	if err != nil {
		return nil, err
	}
	a.session = session
	return a, nil
}

func loadGameConfig(path string) (config.GameConfig, error) {
	conf, err := config.ReadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.DefaultGameConfig(), nil
	}
	if err != nil {
		return config.GameConfig{}, err
	}
	return conf.Game, conf.Game.Validate()
}

func newFileLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

// handleInput 返回 false 表示退出
func (a *app) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyEnter || (ev.Key() == tcell.KeyRune && ev.Rune() == ' '):
			a.action()
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'r' || ev.Rune() == 'R'):
			a.session.Reset()
		}
	case *tcell.EventMouse:
		down := ev.Buttons()&tcell.Button1 != 0
		if down && !a.pressed {
			a.action()
		}
		a.pressed = down
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) action() {
	p := a.session.Action()
	a.sounds.play(cueFor(p))
}

// step 按真实经过的时间推进并重画
func (a *app) step(now time.Time) {
	dt := now.Sub(a.last).Seconds()
	a.last = now
	a.session.Tick(dt)
	snap := a.session.Snapshot()
	newView(a.screen, a.session.Config().BlockHeight, snap).draw(snap)
}

// pollEvents 把屏幕事件转发到 out，直到屏幕关闭或 done 关闭
func pollEvents(screen tcell.Screen, out chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}

func (a *app) run() {
	ticker := time.NewTicker(16 * time.Millisecond) // ~60 FPS
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go pollEvents(a.screen, eventChan, done)

	for {
		select {
		case ev := <-eventChan:
			if !a.handleInput(ev) {
				return
			}
		case now := <-ticker.C:
			a.step(now)
		}
	}
}
