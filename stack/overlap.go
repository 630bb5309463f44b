package stack

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Overlaps 判断两个轴对齐长方体是否在三个轴上同时重叠。
// 位置为中心点，尺寸为完整边长；恰好贴合的面不算重叠。
func Overlaps(posA, sizeA, posB, sizeB mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(posA[i]-posB[i]) >= (sizeA[i]+sizeB[i])/2 {
			return false
		}
	}
	return true
}
