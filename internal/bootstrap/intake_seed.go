package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"intake_server/core/domain"
	"intake_server/internal/memstore"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML document loaded into the in-memory store in standalone mode.
type Seed struct {
	Politicians []struct {
		Name             string   `yaml:"name"`
		Email            string   `yaml:"email"`
		AdditionalEmails []string `yaml:"additional_emails"`
		Party            string   `yaml:"party"`
		Active           *bool    `yaml:"active"`
	} `yaml:"politicians"`

	Campaigns []struct {
		Name        string `yaml:"name"`
		Slug        string `yaml:"slug"`
		Description string `yaml:"description"`
		Status      string `yaml:"status"`
	} `yaml:"campaigns"`
}

// LoadSeedFile reads a seed document from path into store.
func LoadSeedFile(path string, store *memstore.Store) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return LoadSeed(f, store)
}

func LoadSeed(r io.Reader, store *memstore.Store) error {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return fmt.Errorf("decode seed: %w", err)
	}

	now := time.Now().UTC()
	for i, p := range seed.Politicians {
		if p.Email == "" {
			return fmt.Errorf("seed politician %d: email is required", i)
		}
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		pol := domain.Politician{
			Name:             p.Name,
			Email:            p.Email,
			AdditionalEmails: p.AdditionalEmails,
			Active:           active,
			CreatedAt:        now,
		}
		if p.Party != "" {
			party := p.Party
			pol.Party = &party
		}
		store.AddPolitician(pol)
	}

	for i, c := range seed.Campaigns {
		if c.Slug == "" {
			return fmt.Errorf("seed campaign %d: slug is required", i)
		}
		camp := domain.Campaign{
			Name:      c.Name,
			Slug:      c.Slug,
			Status:    domain.CampaignStatus(c.Status),
			CreatedAt: now,
		}
		if c.Description != "" {
			desc := c.Description
			camp.Description = &desc
		}
		store.AddCampaign(camp, nil)
	}
	return nil
}
