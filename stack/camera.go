package stack

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

const (
	cameraFollow    = 0.05 // 每 1/60 秒向目标靠近的比例
	cameraRate      = 60.0
	cameraOrbit     = 30.0
	cameraOrbitRate = 0.2
)

// NewCamera returns the camera at its starting corner.
func NewCamera() structs.Camera {
	return structs.Camera{Position: mgl64.Vec3{18, 18, 18}}
}

// StepCamera 跟随塔顶；结束后绕塔旋转
func StepCamera(cam structs.Camera, towerHeight float64, ended bool, dt float64) structs.Camera {
	if dt <= 0 {
		return cam
	}
	if ended {
		cam.Orbit += dt * cameraOrbitRate
		cam.Position = mgl64.Vec3{
			math.Sin(cam.Orbit) * cameraOrbit,
			towerHeight/2 + 10,
			math.Cos(cam.Orbit) * cameraOrbit,
		}
		cam.LookAt = mgl64.Vec3{0, towerHeight / 2, 0}
		return cam
	}

	alpha := 1 - math.Pow(1-cameraFollow, dt*cameraRate)
	target := mgl64.Vec3{18, towerHeight + 18.5, 18}
	look := mgl64.Vec3{0, towerHeight + 2.5, 0}
	cam.Position = cam.Position.Add(target.Sub(cam.Position).Mul(alpha))
	cam.LookAt = cam.LookAt.Add(look.Sub(cam.LookAt).Mul(alpha))
	return cam
}
