// Package gridmaker converts typed atoms into dense density grids and
// backpropagates grid gradients onto atom positions.
//
// A grid has one channel per atom type group and dim points per axis, where
// dim = round(dimension/resolution) + 1. Each atom contributes a Gaussian
// density inside its radius and a quadratic shoulder out to
// radius*RadiusMultiple, beyond which it contributes nothing.
//
// Two engines share the same per-atom algorithm and differ only in how a
// (channel, i, j, k) point is addressed in the caller's buffer:
//
//   - GridMaker writes a contiguous [channels][dim][dim][dim] grid.
//   - SubcubeGridMaker writes a tiled
//     [subcubes][batch][channels][sub][sub][sub] grid accumulated over a
//     rolling batch tracked by an explicit BatchCursor.
//
// Engines are immutable after construction apart from SetCenter, so a single
// engine can serve concurrent calls on distinct buffers.
package gridmaker
