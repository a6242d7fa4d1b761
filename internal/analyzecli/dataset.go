package analyzecli

import (
	"fmt"
	"os"

	"github.com/okian/tapdiag/internal/domain/analytics"
	"gopkg.in/yaml.v3"
)

// Dataset is a parsed dataset file. Files hold either a bare list of data
// points or a document with a data key plus optional timeframe and config.
type Dataset struct {
	Data      []analytics.DataPoint `yaml:"data"`
	Timeframe string                `yaml:"timeframe"`
	Config    *analytics.Config     `yaml:"config"`
}

// LoadDataset reads path. YAML is a superset of JSON, so both parse.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	return ParseDataset(raw)
}

// ParseDataset decodes a dataset document.
func ParseDataset(raw []byte) (Dataset, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	if len(node.Content) == 0 {
		return Dataset{}, fmt.Errorf("%w: empty document", ErrDataset)
	}

	var ds Dataset
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&ds.Data); err != nil {
			return Dataset{}, fmt.Errorf("%w: %w", ErrDataset, err)
		}
	case yaml.MappingNode:
		if err := root.Decode(&ds); err != nil {
			return Dataset{}, fmt.Errorf("%w: %w", ErrDataset, err)
		}
	default:
		return Dataset{}, fmt.Errorf("%w: expected a list or a mapping", ErrDataset)
	}
	return ds, nil
}
