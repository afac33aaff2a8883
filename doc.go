// Package darkroom holds the shared value types of the darkroom rendering
// core: CPU pixel buffers, adjustment parameters, tone curves and brush
// state. All GPU work is behind the backend contract in
// github.com/gophoto/darkroom/backend; frame orchestration (develop pass,
// layer compositing, safe texture handoff) lives in
// github.com/gophoto/darkroom/render.
package darkroom
