package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/The-x-35/vibegame-sub000/internal/models"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v2"
)

type MintsConfig struct {
	Mints []models.MintInfo `yaml:"mints"`
}

// LoadMintConfig reads the static mint registry. A missing file yields an
// empty registry; every mint is then resolved on the ledger.
func LoadMintConfig(mintsFile string) ([]models.MintInfo, error) {
	if mintsFile == "" {
		return nil, nil
	}

	var mintsPath string
	if filepath.IsAbs(mintsFile) {
		mintsPath = mintsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		mintsPath = filepath.Join(wd, mintsFile)
	}

	data, err := os.ReadFile(mintsPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", mintsFile, err)
	}

	var config MintsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", mintsFile, err)
	}

	seen := make(map[string]bool)
	for i, m := range config.Mints {
		if m.Symbol == "" {
			return nil, fmt.Errorf("mint at index %d missing symbol", i)
		}
		if _, err := solana.PublicKeyFromBase58(m.Address); err != nil {
			return nil, fmt.Errorf("mint %s has invalid address: %w", m.Symbol, err)
		}
		if seen[m.Address] {
			return nil, fmt.Errorf("mint %s listed twice", m.Address)
		}
		seen[m.Address] = true
	}

	return config.Mints, nil
}
