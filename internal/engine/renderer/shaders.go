package renderer

// Both programs share the vertex layout of terrain.Vertex.
const tileVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;
layout (location = 3) in vec4 aColor;
layout (location = 4) in vec3 aLight;

uniform mat4 uViewProjection;
uniform mat4 uModel;

out vec3 vWorld;
out vec3 vNormal;
out vec2 vTexCoord;
out vec4 vColor;
out vec3 vLight;

void main() {
	vec4 world = uModel * vec4(aPosition, 1.0);
	vWorld = world.xyz;
	vNormal = aNormal;
	vTexCoord = aTexCoord;
	vColor = aColor;
	vLight = aLight;
	gl_Position = uViewProjection * world;
}
`

const hiresFragmentShader = `
#version 410 core

in vec3 vWorld;
in vec3 vNormal;
in vec2 vTexCoord;
in vec4 vColor;
in vec3 vLight;

uniform sampler2D uTexture;
uniform bool uHasTexture;
uniform vec4 uMaterialColor;
uniform float uSunlight;
uniform float uAmbient;

out vec4 fragColor;

void main() {
	vec4 color = uMaterialColor;
	if (uHasTexture) {
		color = texture(uTexture, vTexCoord);
	}
	if (color.a < 0.01) {
		discard;
	}
	color *= vColor;

	float light = max(vLight.x * uSunlight, vLight.y);
	light = uAmbient + (1.0 - uAmbient) * light;
	fragColor = vec4(color.rgb * light * vLight.z, color.a);
}
`

// The lowres program hides fragments above cells the next finer layer
// has loaded, using that layer's tile mask.
const lowresFragmentShader = `
#version 410 core

in vec3 vWorld;
in vec3 vNormal;
in vec2 vTexCoord;
in vec4 vColor;
in vec3 vLight;

uniform sampler2D uMask;
uniform bool uHasMask;
uniform vec2 uMaskTileSize;
uniform vec2 uMaskTranslate;
uniform vec2 uMaskCenter;
uniform float uMaskSize;
uniform float uSunlight;
uniform float uAmbient;

out vec4 fragColor;

void main() {
	if (uHasMask) {
		vec2 tile = floor((vWorld.xz - uMaskTranslate) / uMaskTileSize);
		vec2 cell = tile - uMaskCenter + floor(uMaskSize * 0.5);
		if (all(greaterThanEqual(cell, vec2(0.0))) && all(lessThan(cell, vec2(uMaskSize)))) {
			if (texture(uMask, (cell + 0.5) / uMaskSize).r > 0.5) {
				discard;
			}
		}
	}

	float diffuse = clamp(dot(normalize(vNormal), normalize(vec3(0.3, 1.0, 0.5))), 0.0, 1.0);
	float light = uAmbient + (1.0 - uAmbient) * uSunlight * (0.6 + 0.4 * diffuse);
	fragColor = vec4(vColor.rgb * light, 1.0);
}
`
