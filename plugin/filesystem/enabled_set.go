package filesystem

import (
	"time"

	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
)

// EnabledSet represents the YAML structure of the enabled add-on file.
type EnabledSet struct {
	Generated time.Time      `yaml:"generated"`
	Addons    []EnabledAddon `yaml:"addons"`
	Version   int            `yaml:"enabled_version"`
}

// EnabledAddon represents one enabled add-on in YAML.
type EnabledAddon struct {
	EnabledAt time.Time `yaml:"enabled_at,omitempty"`
	ID        string    `yaml:"id"`
	Version   string    `yaml:"version"`
	Source    string    `yaml:"source,omitempty"`
}

// ToEntity converts the file representation to a domain entity.
func (s *EnabledSet) ToEntity() *entities.EnabledSet {
	entity := &entities.EnabledSet{
		Generated: s.Generated,
		Version:   s.Version,
		Addons:    make([]entities.EnabledAddon, 0, len(s.Addons)),
	}

	for _, a := range s.Addons {
		entity.Addons = append(entity.Addons, entities.EnabledAddon{
			EnabledAt: a.EnabledAt,
			ID:        a.ID,
			Version:   a.Version,
			Source:    a.Source,
		})
	}

	return entity
}

// FromEntity converts a domain enabled set to its YAML representation.
func FromEntity(entity *entities.EnabledSet) *EnabledSet {
	if entity == nil {
		return nil
	}

	s := &EnabledSet{
		Generated: entity.Generated,
		Version:   entity.Version,
		Addons:    make([]EnabledAddon, 0, len(entity.Addons)),
	}

	for _, a := range entity.Addons {
		s.Addons = append(s.Addons, EnabledAddon{
			EnabledAt: a.EnabledAt,
			ID:        a.ID,
			Version:   a.Version,
			Source:    a.Source,
		})
	}

	return s
}
