package renderer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/go-gl/gl/v4.1-core/gl"
)

const (
	modeQuad  = 0
	modeLines = 1
)

// Quads are a unit square scaled into uRect; lines are passed through in
// level space. Texture row 0 is the image's top row, so v is flipped.
const vertexShaderSource = `
#version 410 core

layout (location = 0) in vec2 aPos;

uniform mat4 uProj;
uniform vec4 uRect;
uniform int uMode;

out vec2 vUV;

void main() {
	vec2 p = aPos;
	if (uMode == 0) {
		p = uRect.xy + aPos * uRect.zw;
	}
	gl_Position = uProj * vec4(p, 0.0, 1.0);
	vUV = vec2(aPos.x, 1.0 - aPos.y);
}
`

const fragmentShaderSource = `
#version 410 core

in vec2 vUV;
out vec4 FragColor;

uniform sampler2D uTex;
uniform vec4 uColor;
uniform int uTextured;

void main() {
	if (uTextured == 1) {
		FragColor = texture(uTex, vUV) * uColor;
	} else {
		FragColor = uColor;
	}
}
`

type uniforms struct {
	proj     int32
	rect     int32
	mode     int32
	tex      int32
	color    int32
	textured int32
}

func lookupUniforms(program uint32) uniforms {
	return uniforms{
		proj:     uniformLocation(program, "uProj"),
		rect:     uniformLocation(program, "uRect"),
		mode:     uniformLocation(program, "uMode"),
		tex:      uniformLocation(program, "uTex"),
		color:    uniformLocation(program, "uColor"),
		textured: uniformLocation(program, "uTextured"),
	}
}

// uniformLocation returns -1 for missing or optimized-out uniforms, which GL
// silently ignores on upload.
func uniformLocation(program uint32, name string) int32 {
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	if loc < 0 {
		logger.Warn("uniform not found", zap.String("name", name), zap.Uint32("program", program))
	}
	return loc
}

// compileProgram compiles vertex and fragment shaders and links them.
func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link failed: %s", log)
	}

	logger.Debug("shader program created", zap.Uint32("program", program))
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", log)
	}

	return shader, nil
}
