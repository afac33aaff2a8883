// Package develop is the CPU reference implementation of the develop and
// mask math. The GLSL and WGSL shaders in the backend packages mirror the
// formulas and tuning constants defined here; tests validate invariants
// against this package so they run without a GPU.
package develop
