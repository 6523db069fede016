// Package voice holds the NPC voice catalog and the mutable active-voice
// registry used by speech synthesis.
//
// A Catalog is built once at startup and never changes afterwards. A Registry
// wraps a Catalog and tracks the per-profile speed/pitch adjustments and the
// voice currently selected for synthesis. Registry is safe for concurrent use.
package voice

import (
	"fmt"
	log "log/slog"
	"sort"
	"strings"
	"sync"
)

// ID names a synthesis voice.
type ID string

const (
	Alloy   ID = "alloy"
	Echo    ID = "echo"
	Fable   ID = "fable"
	Onyx    ID = "onyx"
	Nova    ID = "nova"
	Shimmer ID = "shimmer"
)

// DefaultID is used whenever an unknown voice is requested.
const DefaultID = Alloy

// Profile is a named speed/pitch configuration.
type Profile struct {
	Name        ID      `yaml:"name"`
	Speed       float64 `yaml:"speed"`
	Pitch       float64 `yaml:"pitch"`
	Description string  `yaml:"description"`
}

// EmotionVoice is the voice selected for an emotion tag.
type EmotionVoice struct {
	Voice ID      `yaml:"voice"`
	Speed float64 `yaml:"speed"`
	Pitch float64 `yaml:"pitch"`
}

// Catalog is the immutable table of voices and emotion mappings.
type Catalog struct {
	profiles map[ID]Profile
	emotions map[string]EmotionVoice
}

// DefaultProfiles returns the built-in voice table.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: Alloy, Speed: 1.0, Pitch: 1.0, Description: "Balanced, neutral voice"},
		{Name: Echo, Speed: 1.0, Pitch: 1.0, Description: "Clear, articulate voice"},
		{Name: Fable, Speed: 1.0, Pitch: 1.0, Description: "Storytelling, expressive voice"},
		{Name: Onyx, Speed: 0.9, Pitch: 0.9, Description: "Deep, authoritative voice"},
		{Name: Nova, Speed: 1.0, Pitch: 1.1, Description: "Warm, friendly voice"},
		{Name: Shimmer, Speed: 1.1, Pitch: 1.1, Description: "Bright, energetic voice"},
	}
}

// DefaultEmotions returns the built-in emotion to voice mapping.
func DefaultEmotions() map[string]EmotionVoice {
	return map[string]EmotionVoice{
		"happy":         {Voice: Shimmer, Speed: 1.1, Pitch: 1.1},
		"sad":           {Voice: Echo, Speed: 0.9, Pitch: 0.9},
		"angry":         {Voice: Onyx, Speed: 1.1, Pitch: 0.9},
		"excited":       {Voice: Nova, Speed: 1.2, Pitch: 1.2},
		"calm":          {Voice: Alloy, Speed: 1.0, Pitch: 1.0},
		"friendly":      {Voice: Nova, Speed: 1.0, Pitch: 1.1},
		"authoritative": {Voice: Onyx, Speed: 0.9, Pitch: 0.9},
	}
}

// NewCatalog validates and freezes the given profiles and emotion mapping.
// The default voice must be present and every emotion must reference a known
// voice.
func NewCatalog(profiles []Profile, emotions map[string]EmotionVoice) (*Catalog, error) {
	c := &Catalog{
		profiles: make(map[ID]Profile, len(profiles)),
		emotions: make(map[string]EmotionVoice, len(emotions)),
	}

	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("voice profile without name")
		}
		if p.Speed <= 0 || p.Pitch <= 0 {
			return nil, fmt.Errorf("voice %q: speed and pitch must be positive", p.Name)
		}
		c.profiles[p.Name] = p
	}

	if _, ok := c.profiles[DefaultID]; !ok {
		return nil, fmt.Errorf("default voice %q missing from catalog", DefaultID)
	}

	for tag, ev := range emotions {
		if _, ok := c.profiles[ev.Voice]; !ok {
			return nil, fmt.Errorf("emotion %q: unknown voice %q", tag, ev.Voice)
		}
		if ev.Speed <= 0 || ev.Pitch <= 0 {
			return nil, fmt.Errorf("emotion %q: speed and pitch must be positive", tag)
		}
		c.emotions[strings.ToLower(tag)] = ev
	}

	return c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultProfiles(), DefaultEmotions())
	if err != nil {
		panic(err)
	}
	return c
}

// Profile looks up a voice by id.
func (c *Catalog) Profile(id ID) (Profile, bool) {
	p, ok := c.profiles[id]
	return p, ok
}

// Emotion looks up the voice mapped to an emotion tag.
func (c *Catalog) Emotion(tag string) (EmotionVoice, bool) {
	ev, ok := c.emotions[strings.ToLower(tag)]
	return ev, ok
}

// IDs returns all voice ids in stable order.
func (c *Catalog) IDs() []ID {
	ids := make([]ID, 0, len(c.profiles))
	for id := range c.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Registry tracks the adjusted profiles and the active voice.
type Registry struct {
	catalog *Catalog

	mu       sync.RWMutex
	profiles map[ID]Profile
	current  ID
}

// NewRegistry creates a registry seeded from catalog with the default voice
// active.
func NewRegistry(catalog *Catalog) *Registry {
	r := &Registry{
		catalog:  catalog,
		profiles: make(map[ID]Profile, len(catalog.profiles)),
		current:  DefaultID,
	}
	for id, p := range catalog.profiles {
		r.profiles[id] = p
	}
	return r
}

// Catalog returns the immutable table the registry was built from.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Set selects id as the active voice and updates its speed and pitch.
// An unknown id selects the default voice and leaves its settings untouched.
// Non-positive speed or pitch values are ignored.
func (r *Registry) Set(id ID, speed, pitch float64) Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		log.Warn("Voice not found, using default", "voice", id, "default", DefaultID)
		r.current = DefaultID
		return r.profiles[DefaultID]
	}

	if speed > 0 {
		p.Speed = speed
	}
	if pitch > 0 {
		p.Pitch = pitch
	}
	r.profiles[id] = p
	r.current = id

	log.Debug("Voice set", "voice", id, "speed", p.Speed, "pitch", p.Pitch)
	return p
}

// ApplyEmotion selects the voice mapped to tag. It reports false and leaves
// the active voice unchanged when the tag is unknown.
func (r *Registry) ApplyEmotion(tag string) (Profile, bool) {
	ev, ok := r.catalog.Emotion(tag)
	if !ok {
		log.Info("Unknown emotion, keeping voice", "emotion", tag)
		return r.Current(), false
	}
	return r.Set(ev.Voice, ev.Speed, ev.Pitch), true
}

// Current returns a copy of the active profile.
func (r *Registry) Current() Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[r.current]
}

// Get returns a copy of the adjusted profile for id.
func (r *Registry) Get(id ID) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}
