package rules

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/llmwatch/llmwatch/internal/detector"
)

// File is the parsed content of a detector rules file. Every field is
// optional; absent settings keep their configured defaults.
type File struct {
	WindowSize *int
	MinPoints  *int
	ZThreshold *float64
	EWMAAlpha  *float64
	Sev1ZScore *float64
	Sev2ZScore *float64
	Patterns   []detector.Rule
}

// Load reads an HCL rules file and applies it on top of the given
// detector configuration. Parse errors are loud: a broken rules file
// should stop startup, not silently fall back to defaults.
func Load(path string, base detector.Config) (detector.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read rules file: %w", err)
	}

	f, err := Parse(content, path)
	if err != nil {
		return base, err
	}
	return f.Apply(base), nil
}

// Parse parses rules file content.
func Parse(content []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("rules file parsing failed: %s", diags.Error())
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected rules file body type")
	}

	out := &File{}
	for _, block := range body.Blocks {
		switch block.Type {
		case "detector":
			if err := parseDetectorBlock(block, out); err != nil {
				return nil, err
			}
		case "pattern":
			rule, err := parsePatternBlock(block)
			if err != nil {
				return nil, err
			}
			out.Patterns = append(out.Patterns, *rule)
		default:
			return nil, fmt.Errorf("%s: unknown block type %q", block.DefRange().String(), block.Type)
		}
	}
	return out, nil
}

// Apply overlays the file's settings on a base configuration. A rules
// file with patterns replaces the whole rule table.
func (f *File) Apply(base detector.Config) detector.Config {
	cfg := base
	if f.WindowSize != nil {
		cfg.WindowSize = *f.WindowSize
	}
	if f.MinPoints != nil {
		cfg.MinPoints = *f.MinPoints
	}
	if f.ZThreshold != nil {
		cfg.ZThreshold = *f.ZThreshold
	}
	if f.EWMAAlpha != nil {
		cfg.EWMAAlpha = *f.EWMAAlpha
	}
	if f.Sev1ZScore != nil {
		cfg.Sev1ZScore = *f.Sev1ZScore
	}
	if f.Sev2ZScore != nil {
		cfg.Sev2ZScore = *f.Sev2ZScore
	}
	if len(f.Patterns) > 0 {
		cfg.Rules = f.Patterns
	}
	return cfg
}

func parseDetectorBlock(block *hclsyntax.Block, out *File) error {
	for name, attr := range block.Body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("detector.%s: %s", name, diags.Error())
		}
		switch name {
		case "window_size":
			n, err := intValue(val)
			if err != nil {
				return fmt.Errorf("detector.window_size: %w", err)
			}
			out.WindowSize = &n
		case "min_points":
			n, err := intValue(val)
			if err != nil {
				return fmt.Errorf("detector.min_points: %w", err)
			}
			out.MinPoints = &n
		case "z_threshold":
			v, err := floatValue(val)
			if err != nil {
				return fmt.Errorf("detector.z_threshold: %w", err)
			}
			out.ZThreshold = &v
		case "ewma_alpha":
			v, err := floatValue(val)
			if err != nil {
				return fmt.Errorf("detector.ewma_alpha: %w", err)
			}
			out.EWMAAlpha = &v
		case "sev1_zscore":
			v, err := floatValue(val)
			if err != nil {
				return fmt.Errorf("detector.sev1_zscore: %w", err)
			}
			out.Sev1ZScore = &v
		case "sev2_zscore":
			v, err := floatValue(val)
			if err != nil {
				return fmt.Errorf("detector.sev2_zscore: %w", err)
			}
			out.Sev2ZScore = &v
		default:
			return fmt.Errorf("detector block: unknown setting %q", name)
		}
	}
	return nil
}

func parsePatternBlock(block *hclsyntax.Block) (*detector.Rule, error) {
	if len(block.Labels) != 1 {
		return nil, fmt.Errorf("pattern block requires exactly one label (the pattern id)")
	}

	rule := &detector.Rule{Name: block.Labels[0]}
	for name, attr := range block.Body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("pattern %q: %s", rule.Name, diags.Error())
		}
		switch name {
		case "metrics":
			metrics, err := stringListValue(val)
			if err != nil {
				return nil, fmt.Errorf("pattern %q metrics: %w", rule.Name, err)
			}
			rule.Metrics = metrics
		case "priority":
			n, err := intValue(val)
			if err != nil {
				return nil, fmt.Errorf("pattern %q priority: %w", rule.Name, err)
			}
			rule.Priority = n
		default:
			return nil, fmt.Errorf("pattern %q: unknown setting %q", rule.Name, name)
		}
	}

	if len(rule.Metrics) < 2 {
		return nil, fmt.Errorf("pattern %q requires at least two metrics", rule.Name)
	}
	return rule, nil
}

func intValue(val cty.Value) (int, error) {
	f, err := floatValue(val)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func floatValue(val cty.Value) (float64, error) {
	if val.Type() != cty.Number {
		return 0, fmt.Errorf("expected a number, got %s", val.Type().FriendlyName())
	}
	f, _ := val.AsBigFloat().Float64()
	return f, nil
}

func stringListValue(val cty.Value) ([]string, error) {
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, fmt.Errorf("expected a list of strings, got %s", val.Type().FriendlyName())
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("expected a string element, got %s", elem.Type().FriendlyName())
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}
