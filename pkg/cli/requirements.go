package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/mchmarny/cryptorec/pkg/score"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	flagDataType    = "data-type"
	flagSecurity    = "security"
	flagPerformance = "performance"
	flagUseCase     = "use-case"
	flagCompliance  = "compliance"
	flagQuantum     = "quantum"
	flagFile        = "file"
	flagThreshold   = "threshold"
	flagLimit       = "limit"
)

// requirementFlags returns the flags read by readRequirements.
func requirementFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{
			Name:    flagDataType,
			Aliases: []string{"d"},
			Usage:   "Type of data to protect (e.g. database, streaming, files)",
		},
		&urfave.IntFlag{
			Name:    flagSecurity,
			Aliases: []string{"s"},
			Usage:   "Security priority from 1 to 10 (default: 5)",
		},
		&urfave.IntFlag{
			Name:    flagPerformance,
			Aliases: []string{"p"},
			Usage:   "Performance priority from 1 to 10 (default: 5)",
		},
		&urfave.StringFlag{
			Name:    flagUseCase,
			Aliases: []string{"u"},
			Usage:   "Use case key (e.g. data-at-rest, key-exchange)",
		},
		&urfave.StringSliceFlag{
			Name:    flagCompliance,
			Aliases: []string{"c"},
			Usage:   "Compliance standard key, repeatable (e.g. PCI, FIPS)",
		},
		&urfave.BoolFlag{
			Name:    flagQuantum,
			Aliases: []string{"q"},
			Usage:   "Prefer quantum resistant algorithms",
		},
		&urfave.StringFlag{
			Name:    flagFile,
			Aliases: []string{"f"},
			Usage:   "Read requirements from a YAML or JSON file, flags override its values",
		},
	}
}

// optionFlags returns the flags read by readOptions.
func optionFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.IntFlag{
			Name:  flagThreshold,
			Usage: "Minimum score a recommendation must exceed (default: from config)",
		},
		&urfave.IntFlag{
			Name:  flagLimit,
			Usage: "Maximum number of recommendations (default: from config)",
		},
	}
}

// readRequirements merges the requirements from the config, the optional
// file and the flags, in that order, and validates the result.
func readRequirements(cmd *urfave.Command) (*score.Requirements, error) {
	cfg := getConfig(cmd)

	req := &score.Requirements{}
	if cfg.Config.Requirements != nil {
		*req = *cfg.Config.Requirements
	}

	if p := cmd.String(flagFile); p != "" {
		b, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			return nil, fmt.Errorf("error reading requirements file %s: %w", p, err)
		}
		// YAML is a superset of JSON so one decoder reads both.
		if err := yaml.Unmarshal(b, req); err != nil {
			return nil, fmt.Errorf("error decoding requirements file %s: %w", p, err)
		}
	}

	if cmd.IsSet(flagDataType) {
		req.DataType = strings.TrimSpace(cmd.String(flagDataType))
	}
	if cmd.IsSet(flagSecurity) {
		req.SecurityPriority = cmd.Int(flagSecurity)
	}
	if cmd.IsSet(flagPerformance) {
		req.PerformancePriority = cmd.Int(flagPerformance)
	}
	if cmd.IsSet(flagUseCase) {
		req.UseCase = strings.TrimSpace(cmd.String(flagUseCase))
	}
	if cmd.IsSet(flagCompliance) {
		req.Compliance = splitList(cmd.StringSlice(flagCompliance))
	}
	if cmd.IsSet(flagQuantum) {
		req.QuantumConcern = cmd.Bool(flagQuantum)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// readOptions returns the ranking options from the config overridden by flags.
func readOptions(cmd *urfave.Command) rank.Options {
	cfg := getConfig(cmd)
	opts := rank.Options{
		Threshold: cfg.Config.Threshold,
		Limit:     cfg.Config.Limit,
	}
	if cmd.IsSet(flagThreshold) {
		opts.Threshold = cmd.Int(flagThreshold)
	}
	if cmd.IsSet(flagLimit) {
		opts.Limit = cmd.Int(flagLimit)
	}
	return opts
}

// splitList accepts both repeated flags and comma separated values.
func splitList(v []string) []string {
	list := make([]string, 0, len(v))
	for _, s := range v {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
	}
	return list
}
