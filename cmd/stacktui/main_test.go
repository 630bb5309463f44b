package main

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*app, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)

	session, err := game.NewSession("local", "local", config.DefaultGameConfig(), nil, nil, zap.NewNop())
	require.NoError(t, err)
	return &app{screen: screen, session: session, logger: zap.NewNop(), last: time.Now()}, screen
}

func rowText(screen tcell.SimulationScreen, y int) string {
	w, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		ch, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(ch)
	}
	return b.String()
}

func TestCueFor(t *testing.T) {
	assert.Nil(t, cueFor(nil))
	assert.Equal(t, cuePerfect, cueFor(&stack.Placement{Outcome: stack.Perfect}))
	assert.Equal(t, cueLanded, cueFor(&stack.Placement{Outcome: stack.Landed}))
	assert.Equal(t, cueGameOver, cueFor(&stack.Placement{Outcome: stack.Missed}))
	assert.Equal(t, cueGameOver, cueFor(&stack.Placement{Outcome: stack.TooThin}))
}

func TestKeysDriveSession(t *testing.T) {
	a, _ := newTestApp(t)

	assert.True(t, a.handleInput(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Equal(t, structs.StatePlaying, a.session.State())

	assert.True(t, a.handleInput(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone)))
	assert.Equal(t, structs.StateIdle, a.session.State())

	assert.False(t, a.handleInput(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
}

func TestMouseClickActsOncePerPress(t *testing.T) {
	a, _ := newTestApp(t)

	a.handleInput(tcell.NewEventMouse(1, 1, tcell.Button1, tcell.ModNone))
	a.handleInput(tcell.NewEventMouse(2, 1, tcell.Button1, tcell.ModNone))
	assert.Equal(t, structs.StatePlaying, a.session.State())

	// 按住拖动不算第二次点击，否则移动块会立刻落下
	assert.Len(t, a.session.Snapshot().Stack, 1)
	assert.NotNil(t, a.session.Snapshot().Active)
}

func TestDrawShowsTowerAndStatus(t *testing.T) {
	a, screen := newTestApp(t)
	a.step(a.last)

	_, h := screen.Size()
	assert.Contains(t, rowText(screen, h-2), "press space to start")
	// 底座画在 floor 行，两个视图各一段
	assert.Equal(t, 2*int(3*colsPerUnit), strings.Count(rowText(screen, h-3), "█"))
}

func TestPollEventsStopsWhenDone(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)

	out := make(chan tcell.Event) // 没有人接收
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		pollEvents(screen, out, done)
		close(finished)
	}()

	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	close(done)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("event goroutine still blocked after done was closed")
	}
}

func TestPollEventsForwards(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)

	out := make(chan tcell.Event, 1)
	done := make(chan struct{})
	defer close(done)
	go pollEvents(screen, out, done)

	screen.InjectKey(tcell.KeyRune, 'r', tcell.ModNone)
	for {
		select {
		case ev := <-out:
			if key, ok := ev.(*tcell.EventKey); ok {
				assert.Equal(t, 'r', key.Rune())
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no key event forwarded")
		}
	}
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "score 3  next: Карта «Ёвар» at 10", statusLine(structs.Snapshot{State: structs.StatePlaying, Score: 3}))
	assert.Equal(t, "game over  score 25  prize: Беспроводные наушники", statusLine(structs.Snapshot{State: structs.StateEnded, Score: 25}))
	assert.Equal(t, "game over  score 2", statusLine(structs.Snapshot{State: structs.StateEnded, Score: 2}))
}
