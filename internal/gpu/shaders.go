//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Workgroup dimensions of the raytrace compute entry point.
const (
	workgroupSizeX = 8
	workgroupSizeY = 8
)

//go:embed shaders/raytrace.wgsl
var raytraceShaderSource string

// RaytraceShaderSource returns the WGSL source of the compute program.
func RaytraceShaderSource() string {
	return raytraceShaderSource
}

// compileShaderToSPIRV compiles WGSL source to SPIR-V words.
func compileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// createShaderModule creates a HAL shader module from SPIR-V code.
func createShaderModule(device hal.Device, label string, spirvCode []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirvCode},
	})
}

// dispatchSize returns the workgroup grid covering a width×height image.
func dispatchSize(width, height uint32) (x, y, z uint32) {
	return (width + workgroupSizeX - 1) / workgroupSizeX,
		(height + workgroupSizeY - 1) / workgroupSizeY,
		1
}
