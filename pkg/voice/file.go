package voice

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a voice catalog override.
type catalogFile struct {
	Voices   []Profile               `yaml:"voices"`
	Emotions map[string]EmotionVoice `yaml:"emotions"`
}

// LoadCatalog reads a YAML catalog from path. Sections missing from the file
// fall back to the built-in table.
//
//	voices:
//	  - {name: nova, speed: 1.0, pitch: 1.1, description: Warm, friendly voice}
//	emotions:
//	  friendly: {voice: nova, speed: 1.0, pitch: 1.1}
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode voice catalog: %w", err)
	}

	profiles := f.Voices
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	emotions := f.Emotions
	if len(emotions) == 0 {
		emotions = DefaultEmotions()
	}

	return NewCatalog(profiles, emotions)
}
