package gl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// compileShader compiles one shader stage, returning the shader object or
// the driver's info log on failure.
func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen)+1)
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("gl: shader compile failed: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return shader, nil
}

// linkProgram builds a program from vertex and fragment sources. Compile
// or link failure is returned as an error so Init can report it as an
// initialization failure instead of faulting mid-session.
func linkProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vs, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fs)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen)+1)
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(infoLog))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("gl: program link failed: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return prog, nil
}

// uniformLoc returns the location of a named uniform. A missing uniform
// returns -1, which GL silently ignores on upload; develop uniforms are
// looked up once at init and cached.
func uniformLoc(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

// developLocs caches uniform locations of the develop stages for one
// program (the develop and masked programs share the same uniform set).
type developLocs struct {
	exposure, contrast, highlights, shadows, whites, blacks int32
	temperature, tint, vibrance, saturation                 int32
	clarity, structure, dehaze                              int32
	hueShift, satScale, lumScale, hasHSL                    int32
	curveTex, curveMask                                     int32
	input, blurTex, useBlur                                 int32
}

func lookupDevelopLocs(prog uint32) developLocs {
	return developLocs{
		exposure:    uniformLoc(prog, "uExposure"),
		contrast:    uniformLoc(prog, "uContrast"),
		highlights:  uniformLoc(prog, "uHighlights"),
		shadows:     uniformLoc(prog, "uShadows"),
		whites:      uniformLoc(prog, "uWhites"),
		blacks:      uniformLoc(prog, "uBlacks"),
		temperature: uniformLoc(prog, "uTemperature"),
		tint:        uniformLoc(prog, "uTint"),
		vibrance:    uniformLoc(prog, "uVibrance"),
		saturation:  uniformLoc(prog, "uSaturation"),
		clarity:     uniformLoc(prog, "uClarity"),
		structure:   uniformLoc(prog, "uStructure"),
		dehaze:      uniformLoc(prog, "uDehaze"),
		hueShift:    uniformLoc(prog, "uHueShift"),
		satScale:    uniformLoc(prog, "uSatScale"),
		lumScale:    uniformLoc(prog, "uLumScale"),
		hasHSL:      uniformLoc(prog, "uHasHSL"),
		curveTex:    uniformLoc(prog, "uCurveTex"),
		curveMask:   uniformLoc(prog, "uCurveMask"),
		input:       uniformLoc(prog, "uInput"),
		blurTex:     uniformLoc(prog, "uBlurTex"),
		useBlur:     uniformLoc(prog, "uUseBlur"),
	}
}
