// Navigate prints the navigation analysis for one image, or for a JSON
// snapshot when --snapshot is given, as JSON on stdout.
//
//	navigate photo.jpg
//	navigate --policy legacy --mode all photo.jpg
//	navigate --snapshot boxes.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/detection"
	"github.com/teslashibe/go-rover/pkg/navigation"
	"github.com/teslashibe/go-rover/pkg/pipeline"
)

// snapshotFile is the --snapshot input format.
type snapshotFile struct {
	Frame navigation.FrameGeometry `json:"frame"`
	Boxes []navigation.Box         `json:"boxes"`
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fatal(err)
	}

	policyName := flag.String("policy", config.String(config.EnvNavPolicy, "default"), "Calibration preset: default, legacy")
	mode := flag.String("mode", "closest", "Target policy: closest, all")
	threshold := flag.Float64("threshold", -1, "Override the preset's confidence threshold")
	model := flag.String("model", config.String(config.EnvModelPath, detection.DefaultConfig().ModelPath), "YOLO model (.onnx or .weights)")
	modelCfg := flag.String("model-config", config.String(config.EnvModelConfig, detection.DefaultConfig().ConfigPath), "Darknet .cfg (empty for ONNX)")
	snapshot := flag.String("snapshot", "", "Translate a JSON snapshot file (- for stdin) instead of an image")
	verbose := flag.Bool("v", false, "Print every measured candidate to stderr")
	flag.Parse()

	log.Init("warn")
	debug.Candidates = *verbose
	debug.Output = os.Stderr

	policy, err := navigation.PresetPolicy(*policyName)
	if err != nil {
		fatal(err)
	}
	if policy.Mode, err = navigation.ParsePolicy(*mode); err != nil {
		fatal(err)
	}
	if *threshold >= 0 {
		policy.ConfidenceThreshold = *threshold
	}

	translator, err := navigation.New(policy)
	if err != nil {
		fatal(err)
	}

	var out any
	if *snapshot != "" {
		out, err = translateFile(translator, *snapshot)
	} else {
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(2)
		}
		cfg := detection.DefaultConfig()
		cfg.ModelPath, cfg.ConfigPath = *model, *modelCfg
		cfg.Letterbox = policy.RatioSpace == navigation.SpaceDetector
		cfg.ConfidenceThresh = policy.ConfidenceThreshold
		out, err = analyzeImage(translator, cfg, flag.Arg(0))
	}
	if err != nil {
		fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal(err)
	}
}

func analyzeImage(translator *navigation.Translator, cfg detection.Config, path string) (pipeline.Analysis, error) {
	jpeg, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Analysis{}, err
	}

	det, err := detection.NewYOLO(cfg)
	if err != nil {
		return pipeline.Analysis{}, err
	}
	defer det.Close()

	return pipeline.New(det, translator, nil).Analyze(context.Background(), jpeg)
}

func translateFile(translator *navigation.Translator, path string) (navigation.Result, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return navigation.Result{}, err
		}
		defer f.Close()
		r = f
	}

	var in snapshotFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return navigation.Result{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snap, err := navigation.NewSnapshot(in.Frame, in.Boxes)
	if err != nil {
		return navigation.Result{}, err
	}
	res, err := translator.Translate(snap)
	if err != nil {
		return navigation.Result{}, err
	}
	debug.Reports(res.Reports)
	return res, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "navigate: %v\n", err)
	if errors.Is(err, navigation.ErrInvalidInput) {
		os.Exit(3)
	}
	os.Exit(1)
}
