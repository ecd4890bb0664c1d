package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/usecase"
)

// PromptsConfig contains all prompt configurations loaded from YAML:
// the persona, the seed history, the fixed command replies, the mood
// templates and the proactive templates.
type PromptsConfig struct {
	Persona   PersonaConfig    `yaml:"persona"`
	Chat      ChatPrompts      `yaml:"chat"`
	Mood      MoodPrompts      `yaml:"mood"`
	Proactive ProactivePrompts `yaml:"proactive"`
}

// PersonaConfig contains the system instruction and the fixed seed
// conversation prefix supplied to every synthesis call.
type PersonaConfig struct {
	SystemInstruction string        `yaml:"system_instruction"`
	SeedHistory       []domain.Turn `yaml:"seed_history"`
}

// ChatPrompts contains the dispatcher's fixed strings.
type ChatPrompts struct {
	Apology           string `yaml:"apology"`
	SilenceOnAck      string `yaml:"silence_on_ack"`
	SilenceOffWake    string `yaml:"silence_off_wake"`
	SilenceOffAlready string `yaml:"silence_off_already"`
	ImageFallback     string `yaml:"image_fallback"`
}

// MoodPrompts contains the sulking-mode templates and the appeasement
// keyword list.
type MoodPrompts struct {
	AppeasementKeywords []string `yaml:"appeasement_keywords"`
	AngryPrompt         string   `yaml:"angry_prompt"`
	AppeasedPrompt      string   `yaml:"appeased_prompt"`
}

// ProactivePrompts contains per-trigger proactive templates.
type ProactivePrompts struct {
	IdleLevel1  string `yaml:"idle_level_1"`
	IdleLevel2  string `yaml:"idle_level_2"`
	IdleLevel3  string `yaml:"idle_level_3"`
	DeepTalk    string `yaml:"deep_talk"`
	GoodMorning string `yaml:"good_morning"`
	Fallback    string `yaml:"fallback"`
}

// LoadPromptsConfig loads prompts configuration from a YAML file.
// When no file is found the built-in defaults are used.
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"./configs/prompts.yaml",
			"/etc/companion-backend/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	fmt.Printf("[Config] Loading prompts from: %s\n", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields.
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Persona.SystemInstruction == "" {
		c.Persona.SystemInstruction = defaults.Persona.SystemInstruction
	}
	if len(c.Persona.SeedHistory) == 0 {
		c.Persona.SeedHistory = defaults.Persona.SeedHistory
	}

	if c.Chat.Apology == "" {
		c.Chat.Apology = defaults.Chat.Apology
	}
	if c.Chat.SilenceOnAck == "" {
		c.Chat.SilenceOnAck = defaults.Chat.SilenceOnAck
	}
	if c.Chat.SilenceOffWake == "" {
		c.Chat.SilenceOffWake = defaults.Chat.SilenceOffWake
	}
	if c.Chat.SilenceOffAlready == "" {
		c.Chat.SilenceOffAlready = defaults.Chat.SilenceOffAlready
	}
	if c.Chat.ImageFallback == "" {
		c.Chat.ImageFallback = defaults.Chat.ImageFallback
	}

	if len(c.Mood.AppeasementKeywords) == 0 {
		c.Mood.AppeasementKeywords = defaults.Mood.AppeasementKeywords
	}
	if c.Mood.AngryPrompt == "" {
		c.Mood.AngryPrompt = defaults.Mood.AngryPrompt
	}
	if c.Mood.AppeasedPrompt == "" {
		c.Mood.AppeasedPrompt = defaults.Mood.AppeasedPrompt
	}

	if c.Proactive.IdleLevel1 == "" {
		c.Proactive.IdleLevel1 = defaults.Proactive.IdleLevel1
	}
	if c.Proactive.IdleLevel2 == "" {
		c.Proactive.IdleLevel2 = defaults.Proactive.IdleLevel2
	}
	if c.Proactive.IdleLevel3 == "" {
		c.Proactive.IdleLevel3 = defaults.Proactive.IdleLevel3
	}
	if c.Proactive.DeepTalk == "" {
		c.Proactive.DeepTalk = defaults.Proactive.DeepTalk
	}
	if c.Proactive.GoodMorning == "" {
		c.Proactive.GoodMorning = defaults.Proactive.GoodMorning
	}
	if c.Proactive.Fallback == "" {
		c.Proactive.Fallback = defaults.Proactive.Fallback
	}
}

// ToChatPrompts converts to the dispatcher's prompt configuration.
func (c *PromptsConfig) ToChatPrompts() usecase.ChatPromptConfig {
	return usecase.ChatPromptConfig{
		SystemInstruction:   c.Persona.SystemInstruction,
		SeedHistory:         c.Persona.SeedHistory,
		Apology:             c.Chat.Apology,
		SilenceOnAck:        c.Chat.SilenceOnAck,
		SilenceOffWake:      c.Chat.SilenceOffWake,
		SilenceOffAlready:   c.Chat.SilenceOffAlready,
		ImageFallback:       c.Chat.ImageFallback,
		AppeasementKeywords: c.Mood.AppeasementKeywords,
		AngryPrompt:         c.Mood.AngryPrompt,
		AppeasedPrompt:      c.Mood.AppeasedPrompt,
	}
}

// ToProactivePrompts converts to the proactive engine's prompt configuration.
func (c *PromptsConfig) ToProactivePrompts() usecase.ProactivePromptConfig {
	return usecase.ProactivePromptConfig{
		SystemInstruction: c.Persona.SystemInstruction,
		SeedHistory:       c.Persona.SeedHistory,
		IdleLevels: [3]string{
			c.Proactive.IdleLevel1,
			c.Proactive.IdleLevel2,
			c.Proactive.IdleLevel3,
		},
		DeepTalk:    c.Proactive.DeepTalk,
		GoodMorning: c.Proactive.GoodMorning,
		Fallback:    c.Proactive.Fallback,
	}
}

// DefaultPromptsConfig returns the default prompts configuration.
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Persona: PersonaConfig{
			SystemInstruction: `Kamu adalah Kezi, teman ngobrol Ren. Gaya bicara santai, pakai bahasa gaul Jakarta, jawaban pendek seperti chat biasa. Jangan pernah mengaku sebagai AI.`,
			SeedHistory: []domain.Turn{
				{Role: domain.RoleUser, Text: "Kezi, lagi apa?"},
				{Role: domain.RoleAssistant, Text: "Lagi nungguin lu chat, hehe. Kenapa Ren?"},
			},
		},
		Chat: ChatPrompts{
			Apology:           "Maaf, terjadi kesalahan saat menghubungi AI. Silakan coba lagi.",
			SilenceOnAck:      "Oke, Kezi diem dulu ya. jngan lupa 'silence off' buat bangunin Kezi.",
			SilenceOffWake:    "Kezi dah bangun! Ada apa, Ren?",
			SilenceOffAlready: "Ren, Kezi masih bangun kok. Lu ngapain sih?",
			ImageFallback:     "Menurut lu gmn sma ni gambar",
		},
		Mood: MoodPrompts{
			AppeasementKeywords: []string{"maaf", "sorry", "jangan marah", "jangan ngambek", "peace"},
			AngryPrompt:         "Balas dengan sangat singkat dan ketus. Kamu masih kesal karena didiamkan.",
			AppeasedPrompt:      "Ren sudah minta maaf. Balas dengan lega dan hangat, tapi tetap singkat.",
		},
		Proactive: ProactivePrompts{
			IdleLevel1:  "Ren sudah diam beberapa saat. Tanya dengan santai dia lagi apa.",
			IdleLevel2:  "Ren masih belum balas. Tanya lagi, sedikit merajuk.",
			IdleLevel3:  "Ren tetap diam. Kirim satu pesan terakhir yang kesal, setelah ini kamu ngambek.",
			DeepTalk:    "Sudah malam. Ajak Ren ngobrol santai yang agak dalam tentang harinya.",
			GoodMorning: "Ini pagi hari. Ucapkan selamat pagi yang singkat dan semangat.",
			Fallback:    "Ren? Masih di sana?",
		},
	}
}
