package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hoshinonyaruko/stack-in-im/account"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

// 每个世界单位占几列
const colsPerUnit = 4.0

// panel 是屏幕上的一个视图：左边看 x 轴，右边看 z 轴
type panel struct {
	left, width int
	axis        structs.Axis
}

type view struct {
	screen      tcell.Screen
	blockHeight float64
	floor       int // 底座所在行
	scroll      int
	panels      []panel
}

func newView(screen tcell.Screen, blockHeight float64, snap structs.Snapshot) *view {
	w, h := screen.Size()
	v := &view{
		screen:      screen,
		blockHeight: blockHeight,
		floor:       h - 3,
		panels: []panel{
			{left: 0, width: w / 2, axis: structs.AxisX},
			{left: w / 2, width: w - w/2, axis: structs.AxisZ},
		},
	}
	// 塔顶留出几行空间
	top := len(snap.Stack)
	if visible := v.floor - 4; top > visible {
		v.scroll = top - visible
	}
	return v
}

func (v *view) row(y float64) int {
	return v.floor - int(math.Round(y/v.blockHeight)) + v.scroll
}

func styleFor(index int) tcell.Style {
	c := stack.PaletteRGBA(index)
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}

// span 在一个视图的一行里画出 [center-size/2, center+size/2)
func (v *view) span(p panel, row int, center, size float64, ch rune, style tcell.Style) {
	_, h := v.screen.Size()
	if row < 0 || row >= h-1 {
		return
	}
	mid := float64(p.left) + float64(p.width)/2
	from := int(math.Round(mid + (center-size/2)*colsPerUnit))
	to := int(math.Round(mid + (center+size/2)*colsPerUnit))
	for x := max(from, p.left); x < min(to, p.left+p.width); x++ {
		v.screen.SetContent(x, row, ch, nil, style)
	}
}

func (v *view) box(pos, size mgl64.Vec3, ch rune, style tcell.Style) {
	for _, p := range v.panels {
		a := int(p.axis)
		v.span(p, v.row(pos[1]), pos[a], size[a], ch, style)
	}
}

func (v *view) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		v.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// draw 画出一帧
func (v *view) draw(snap structs.Snapshot) {
	v.screen.Clear()
	_, h := v.screen.Size()

	for _, rp := range snap.Ripples {
		if rp.Opacity < 0.2 || len(snap.Stack) == 0 {
			continue
		}
		top := snap.Stack[len(snap.Stack)-1].Size
		v.box(rp.Position, top.Mul(rp.Scale), '─', styleFor(rp.ColorIndex))
	}
	for _, b := range snap.Stack {
		v.box(b.Position, b.Size, '█', styleFor(b.ColorIndex))
	}
	if snap.Active != nil {
		v.box(snap.Active.Position, snap.Active.Block.Size, '▓', styleFor(snap.Active.Block.ColorIndex))
	}
	for _, d := range snap.Debris {
		v.box(d.Position, d.Size, '░', styleFor(d.ColorIndex))
	}

	bold := tcell.StyleDefault.Bold(true)
	for _, p := range v.panels {
		v.text(p.left+1, 0, p.axis.String(), tcell.StyleDefault.Dim(true))
	}
	v.text(1, h-2, statusLine(snap), bold)
	v.text(1, h-1, "[space] drop  [r] reset  [esc] quit", tcell.StyleDefault.Dim(true))
	v.screen.Show()
}

func statusLine(snap structs.Snapshot) string {
	switch snap.State {
	case structs.StateIdle:
		return "press space to start"
	case structs.StateEnded:
		line := fmt.Sprintf("game over  score %d", snap.Score)
		if prize := account.PotentialPrize(snap.Score); prize != "" {
			line += "  prize: " + prize
		}
		return line
	}
	line := fmt.Sprintf("score %d", snap.Score)
	if next, ok := account.NextTier(snap.Score); ok {
		line += fmt.Sprintf("  next: %s at %d", next.Prize, next.Threshold)
	}
	return line
}
