package cmd

import (
	"maps"

	"github.com/MeKo-Tech/canescan/internal/config"
	"github.com/spf13/pflag"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatYAML = "yaml"
)

// addAnalysisFlags registers the analysis and remote classifier flags and
// returns their viper bindings.
func addAnalysisFlags(f *pflag.FlagSet) map[string]string {
	d := config.DefaultConfig()

	f.Int("block-size", d.Analysis.BlockSize, "block size in pixels for the suspicion scorer")
	f.Float64("suspicion-threshold", d.Analysis.SuspicionThreshold, "block suspicion score a candidate must exceed (0 to below 100)")
	f.Int("max-candidates", d.Analysis.MaxCandidates, "maximum candidate regions kept per image")
	f.Bool("filename-matching", d.Analysis.FilenameMatching, "use pest keywords in the file name as a hint")

	f.String("remote-endpoint", d.Remote.Endpoint, "hosted object-detection endpoint")
	f.String("api-key", "", "API key for the hosted detector (enables remote classification)")
	f.Float64("remote-confidence", d.Remote.Confidence, "minimum remote prediction confidence (0..1)")
	f.Int("remote-timeout", d.Remote.TimeoutSec, "remote request timeout in seconds")

	return map[string]string{
		"block-size":          "analysis.block_size",
		"suspicion-threshold": "analysis.suspicion_threshold",
		"max-candidates":      "analysis.max_candidates",
		"filename-matching":   "analysis.filename_matching",
		"remote-endpoint":     "remote.endpoint",
		"api-key":             "remote.api_key",
		"remote-confidence":   "remote.confidence",
		"remote-timeout":      "remote.timeout_sec",
	}
}

// addOutputFlags registers the result output flags and returns their
// viper bindings.
func addOutputFlags(f *pflag.FlagSet) map[string]string {
	d := config.DefaultConfig()

	f.StringP("format", "f", d.Output.Format, "output format: text, json or csv")
	f.StringP("output", "o", "", "write results to this file instead of stdout")
	f.String("overlay-dir", "", "write <name>_overlay.png with detection boxes into this directory")
	f.String("overlay-color", d.Output.OverlayColor, "overlay color of the primary box (hex)")

	return map[string]string{
		"format":        "output.format",
		"output":        "output.file",
		"overlay-dir":   "output.overlay_dir",
		"overlay-color": "output.overlay_color",
	}
}

func mergeBindings(bindings ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, b := range bindings {
		maps.Copy(out, b)
	}
	return out
}
