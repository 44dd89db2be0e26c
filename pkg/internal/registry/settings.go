package registry

import (
	"fmt"
	"os"

	"github.com/echonet/echonet/pkg/internal/models"
)

// SettingsStore persists per-guild setup configuration with the same
// whole-document, atomic-write contract as the channel registry.
type SettingsStore struct {
	path string
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

func (v *SettingsStore) Load() (map[string]*models.GuildConfig, error) {
	raw, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return map[string]*models.GuildConfig{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to read settings store: %w", err)
	}

	configs := map[string]*models.GuildConfig{}
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, &CorruptStoreError{Path: v.path, Cause: err}
	}

	return configs, nil
}

func (v *SettingsStore) Save(configs map[string]*models.GuildConfig) error {
	raw, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal settings store: %w", err)
	}

	return writeAtomic(v.path, raw)
}

// Guild returns the configuration of one guild, or nil when setup has not
// been run there yet.
func (v *SettingsStore) Guild(guildId string) (*models.GuildConfig, error) {
	configs, err := v.Load()
	if err != nil {
		return nil, err
	}
	return configs[guildId], nil
}

func (v *SettingsStore) SetGuild(config *models.GuildConfig) error {
	configs, err := v.Load()
	if err != nil {
		return err
	}
	configs[config.GuildID] = config
	return v.Save(configs)
}
