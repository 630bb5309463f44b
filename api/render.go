package api

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/hoshinonyaruko/stack-in-im/memimg"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

var (
	isoCos = math.Cos(math.Pi / 6)
	isoSin = math.Sin(math.Pi / 6)
)

// Renderer 把一局游戏的快照画成等轴测 PNG
type Renderer struct {
	Labels *memimg.Cache // 可为空
	Label  string        // 画在底座上的标签图片名
	Unit   float64       // 每个世界单位对应的像素
	Dir    string        // 输出目录
	Width  int
	Height int
}

// NewRenderer 按 unit 计算画布大小
func NewRenderer(labels *memimg.Cache, unit int, dir string) *Renderer {
	if unit <= 0 {
		unit = 24
	}
	return &Renderer{
		Labels: labels,
		Label:  "label.png",
		Unit:   float64(unit),
		Dir:    dir,
		Width:  16 * unit,
		Height: 20 * unit,
	}
}

// project 世界坐标到画布坐标，画面中心对准相机注视点的高度
func (r *Renderer) project(p mgl64.Vec3, lookY float64) (float64, float64) {
	cx := float64(r.Width) / 2
	cy := float64(r.Height)/2 + lookY*r.Unit
	sx := cx + (p[0]-p[2])*isoCos*r.Unit
	sy := cy - p[1]*r.Unit + (p[0]+p[2])*isoSin*r.Unit
	return sx, sy
}

func shade(c color.RGBA, f float64, alpha uint8) color.NRGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, float64(v)*f))
	}
	return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: alpha}
}

// drawBox 画一个轴对齐的盒子，只画朝向观察者的三个面
func (r *Renderer) drawBox(dc *gg.Context, pos, size mgl64.Vec3, base color.RGBA, alpha uint8, lookY float64) {
	half := size.Mul(0.5)
	lo := pos.Sub(half)
	hi := pos.Add(half)

	faces := []struct {
		pts   []mgl64.Vec3
		light float64
	}{
		{[]mgl64.Vec3{{lo[0], hi[1], lo[2]}, {hi[0], hi[1], lo[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]}}, 1.0},
		{[]mgl64.Vec3{{hi[0], lo[1], lo[2]}, {hi[0], hi[1], lo[2]}, {hi[0], hi[1], hi[2]}, {hi[0], lo[1], hi[2]}}, 0.8},
		{[]mgl64.Vec3{{lo[0], lo[1], hi[2]}, {hi[0], lo[1], hi[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]}}, 0.6},
	}
	for _, f := range faces {
		for i, p := range f.pts {
			x, y := r.project(p, lookY)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.SetColor(shade(base, f.light, alpha))
		dc.Fill()
	}
}

func (r *Renderer) drawRipple(dc *gg.Context, rp structs.Ripple, half, lookY float64) {
	h := half * rp.Scale
	corners := []mgl64.Vec3{
		{rp.Position[0] - h, rp.Position[1], rp.Position[2] - h},
		{rp.Position[0] + h, rp.Position[1], rp.Position[2] - h},
		{rp.Position[0] + h, rp.Position[1], rp.Position[2] + h},
		{rp.Position[0] - h, rp.Position[1], rp.Position[2] + h},
	}
	for i, p := range corners {
		x, y := r.project(p, lookY)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	alpha := uint8(math.Max(0, math.Min(1, rp.Opacity)) * 255)
	dc.SetColor(shade(stack.PaletteRGBA(rp.ColorIndex), 1, alpha))
	dc.SetLineWidth(2)
	dc.Stroke()
}

// Render 画出塔、移动块、碎块和波纹
func (r *Renderer) Render(snap structs.Snapshot) image.Image {
	dc := gg.NewContext(r.Width, r.Height)
	dc.SetRGB255(0x1f, 0x1f, 0x2e)
	dc.Clear()

	lookY := snap.Camera.LookAt[1]

	// 碎块在塔后面的先画
	debris := append([]structs.DebrisFragment(nil), snap.Debris...)
	sort.Slice(debris, func(i, j int) bool {
		return debris[i].Position[0]+debris[i].Position[2] < debris[j].Position[0]+debris[j].Position[2]
	})

	for _, b := range snap.Stack {
		r.drawBox(dc, b.Position, b.Size, stack.PaletteRGBA(b.ColorIndex), 255, lookY)
	}
	r.drawLabel(dc, snap, lookY)

	for _, rp := range snap.Ripples {
		half := 0.0
		if len(snap.Stack) > 0 {
			top := snap.Stack[len(snap.Stack)-1].Size
			half = math.Max(top[0], top[2]) / 2
		}
		r.drawRipple(dc, rp, half, lookY)
	}
	if snap.Active != nil {
		a := snap.Active
		r.drawBox(dc, a.Position, a.Block.Size, stack.PaletteRGBA(a.Block.ColorIndex), 255, lookY)
	}
	for _, d := range debris {
		r.drawBox(dc, d.Position, d.Size, stack.PaletteRGBA(d.ColorIndex), 220, lookY)
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%d", snap.Score), float64(r.Width)/2, 24, 0.5, 0.5)
	if snap.State == structs.StateEnded {
		dc.DrawStringAnchored("GAME OVER", float64(r.Width)/2, 44, 0.5, 0.5)
	}
	return dc.Image()
}

// drawLabel 把标签图片贴在底座前方
func (r *Renderer) drawLabel(dc *gg.Context, snap structs.Snapshot, lookY float64) {
	if r.Labels == nil || r.Label == "" || len(snap.Stack) == 0 {
		return
	}
	base := snap.Stack[0]
	side := int(math.Min(base.Size[0], base.Size[2]) * r.Unit * 0.6)
	img, ok := r.Labels.Scaled(r.Label, side, side)
	if !ok {
		return
	}
	front := mgl64.Vec3{base.Position[0] + base.Size[0]/2, base.Position[1], base.Position[2] + base.Size[2]/2}
	x, y := r.project(front, lookY)
	dc.DrawImageAnchored(img, int(x), int(y), 0.5, 0.5)
}

// Save 渲染并保存为 <dir>/<name>.png，返回文件名
func (r *Renderer) Save(snap structs.Snapshot, name string) (string, error) {
	fileName := safeName(name) + ".png"
	path := filepath.Join(r.Dir, fileName)
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", r.Dir, err)
	}
	dc := gg.NewContextForImage(r.Render(snap))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return fileName, nil
}

// safeName 只保留字母数字和 -_，防止 openid 拼出路径；
// 后缀取 openid 的 uuid v5 前 8 位，替换后相同的 openid 不会写到同一个文件
func safeName(name string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
	return b.String() + "-" + id.String()[:8]
}
