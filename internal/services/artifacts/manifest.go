package artifacts

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"QuantPredict/internal/domain/models"
	domsvc "QuantPredict/internal/domain/service"
)

// Artifact formats.
const (
	FormatXGBoostJSON = "xgboost-json"
	FormatRemote      = "remote"
)

// Manifest describes one trained artifact for (symbol, kind).
type Manifest struct {
	Symbol    string           `yaml:"symbol"`
	Kind      domsvc.ModelKind `yaml:"kind"`
	Format    string           `yaml:"format"`
	File      string           `yaml:"file"`
	Window    int              `yaml:"window"`
	Features  int              `yaml:"features"`
	BaseScore *float64         `yaml:"base_score"`
	TrainedAt string           `yaml:"trained_at"`
}

// ParseManifest decodes and checks a manifest.
func ParseManifest(b []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
	m.Format = strings.ToLower(strings.TrimSpace(m.Format))
	if m.Features == 0 {
		m.Features = models.NumFeatures
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Symbol == "" {
		return models.NewError(models.KindNotReady, "manifest has no symbol")
	}
	kind, err := domsvc.ParseModelKind(string(m.Kind))
	if err != nil {
		return err
	}
	m.Kind = kind
	switch m.Format {
	case FormatRemote:
	case FormatXGBoostJSON:
		if m.Kind != domsvc.KindTabular {
			return models.NewError(models.KindNotReady, "%s artifacts must be tabular", FormatXGBoostJSON)
		}
		if m.File == "" {
			return models.NewError(models.KindNotReady, "manifest for %s has no file", m.Symbol)
		}
		// the dump's leaves are offsets from base_score; there is no safe default
		if m.BaseScore == nil {
			return models.NewError(models.KindNotReady, "manifest for %s has no base_score", m.Symbol)
		}
	default:
		return models.NewError(models.KindNotReady, "unsupported artifact format %q", m.Format)
	}
	if m.Window < 0 {
		return models.NewError(models.KindNotReady, "manifest for %s has a negative window", m.Symbol)
	}
	return nil
}
