// Package config handles viewer and preprocessor configuration.
package config

// Config holds all settings.
type Config struct {
	Graphics   GraphicsConfig   `yaml:"graphics"`
	Audio      AudioConfig      `yaml:"audio"`
	Level      LevelConfig      `yaml:"level"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"` // 0 = uncapped
}

// AudioConfig holds audio settings.
type AudioConfig struct {
	MasterVolume float32  `yaml:"master_volume"`
	MusicVolume  float32  `yaml:"music_volume"`
	SFXVolume    float32  `yaml:"sfx_volume"`
	Muted        bool     `yaml:"muted"`
	CraterSFX    []string `yaml:"crater_sfx"` // WAV variants, one picked per crater
	Music        string   `yaml:"music"`
}

// LevelConfig names the level assets.
type LevelConfig struct {
	CollisionMap string `yaml:"collision_map"` // .crm file
	VisualMap    string `yaml:"visual_map"`    // PNG/BMP/TGA image
	TileSize     int    `yaml:"tile_size"`
}

// PhysicsConfig holds body simulation settings.
type PhysicsConfig struct {
	Gravity            float32 `yaml:"gravity"` // pixels/s², pulls toward -y
	Friction           float32 `yaml:"friction"`
	Bounce             float32 `yaml:"bounce"`
	ProjectionStep     float32 `yaml:"projection_step"`
	MaxProjectionSteps int     `yaml:"max_projection_steps"`
	CraterRadius       int     `yaml:"crater_radius"`
}

// PreprocessConfig holds craterprep defaults.
type PreprocessConfig struct {
	SmoothRadius  int    `yaml:"smooth_radius"`
	ProgressEvery int    `yaml:"progress_every"`
	Border        string `yaml:"border"` // "blank" or "solid"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Audio: AudioConfig{
			MasterVolume: 0.8,
			MusicVolume:  0.7,
			SFXVolume:    0.8,
			Muted:        false,
		},
		Level: LevelConfig{
			CollisionMap: "level.crm",
			VisualMap:    "level.png",
			TileSize:     512,
		},
		Physics: PhysicsConfig{
			Gravity:            400,
			Friction:           0.8,
			Bounce:             0.5,
			ProjectionStep:     0.1,
			MaxProjectionSteps: 10000,
			CraterRadius:       24,
		},
		Preprocess: PreprocessConfig{
			SmoothRadius:  6,
			ProgressEvery: 500,
			Border:        "blank",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
