package sway

import (
	"encoding/binary"
	"math"
)

// Wire sizes of the host/device shared structs, in bytes. The layouts are
// packed (no implicit alignment padding); the WGSL kernel reads the buffers
// as flat word arrays so both sides stay bit-compatible.
const (
	BoneParamsSize   = 36
	SphereSize       = 20
	CapsuleSize      = 32
	PlaneSize        = 28
	GlobalParamsSize = 80
	PositionSize     = 12
)

func putF32(buf []byte, off int, f float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
}

func putU32(buf []byte, off int, u uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], u)
}

func putVec3(buf []byte, off int, v Vec3) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
}

// Marshal serializes p into its 36-byte wire form.
func (p BoneParams) Marshal() []byte {
	buf := make([]byte, BoneParamsSize)
	putF32(buf, 0, p.Stiffness)
	putF32(buf, 4, p.Drag)
	putF32(buf, 8, p.Radius)
	putU32(buf, 12, p.ParentIndex)
	putF32(buf, 16, p.GravityPower)
	putU32(buf, 20, p.ColliderGroupMask)
	putVec3(buf, 24, p.GravityDir)
	return buf
}

// Marshal serializes s into its 20-byte wire form.
func (s Sphere) Marshal() []byte {
	buf := make([]byte, SphereSize)
	putVec3(buf, 0, s.Center)
	putF32(buf, 12, s.Radius)
	putU32(buf, 16, s.Group)
	return buf
}

// Marshal serializes c into its 32-byte wire form.
func (c Capsule) Marshal() []byte {
	buf := make([]byte, CapsuleSize)
	putVec3(buf, 0, c.P0)
	putVec3(buf, 12, c.P1)
	putF32(buf, 24, c.Radius)
	putU32(buf, 28, c.Group)
	return buf
}

// Marshal serializes p into its 28-byte wire form.
func (p Plane) Marshal() []byte {
	buf := make([]byte, PlaneSize)
	putVec3(buf, 0, p.Point)
	putVec3(buf, 12, p.Normal)
	putU32(buf, 24, p.Group)
	return buf
}

// Marshal serializes g into its 80-byte wire form.
func (g GlobalParams) Marshal() []byte {
	buf := make([]byte, GlobalParamsSize)
	putVec3(buf, 0, g.Gravity)
	putF32(buf, 12, g.DtSub)
	putF32(buf, 16, g.WindAmplitude)
	putF32(buf, 20, g.WindFrequency)
	putF32(buf, 24, g.WindPhase)
	putVec3(buf, 28, g.WindDirection)
	putU32(buf, 40, g.Substeps)
	putU32(buf, 44, g.NumBones)
	putU32(buf, 48, g.NumSpheres)
	putU32(buf, 52, g.NumCapsules)
	putU32(buf, 56, g.NumPlanes)
	putU32(buf, 60, g.SettlingFrames)
	putF32(buf, 64, g.DragMultiplier)
	putVec3(buf, 68, g.ExternalVelocity)
	return buf
}

// PackBoneParams concatenates wire forms for a device upload.
func PackBoneParams(params []BoneParams) []byte {
	buf := make([]byte, 0, len(params)*BoneParamsSize)
	for _, p := range params {
		buf = append(buf, p.Marshal()...)
	}
	return buf
}

// PackPositions serializes positions as tightly packed 12-byte vectors.
func PackPositions(positions []Vec3) []byte {
	buf := make([]byte, len(positions)*PositionSize)
	for i, v := range positions {
		putVec3(buf, i*PositionSize, v)
	}
	return buf
}

// UnpackPositions is the readback inverse of PackPositions.
func UnpackPositions(buf []byte, out []Vec3) {
	n := len(buf) / PositionSize
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		off := i * PositionSize
		out[i] = Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8 : off+12])),
		}
	}
}
