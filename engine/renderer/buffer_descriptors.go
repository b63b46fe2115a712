package renderer

import (
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
)

func boneBufferDescriptor(label string, matrices int) wgpu.BufferDescriptor {
	return wgpu.BufferDescriptor{
		Label: label + " Bone Buffer",
		Size:  uint64(matrices) * common.Mat4Size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	}
}

func instanceBufferDescriptor(label string) wgpu.BufferDescriptor {
	var data model.GPUInstanceData
	return wgpu.BufferDescriptor{
		Label: label + " Instance Buffer",
		Size:  uint64(data.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	}
}

func vertexBufferDescriptor(label string, size int) wgpu.BufferDescriptor {
	return wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	}
}

func indexBufferDescriptor(label string, size int) wgpu.BufferDescriptor {
	return wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	}
}
