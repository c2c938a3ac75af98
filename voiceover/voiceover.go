// Package voiceover selects the manim-voiceover speech service that narrates
// the rendered scene, and probes the Python environment for it.
package voiceover

import (
	"context"
	"fmt"
	"strings"

	"learntube-pipeline/03_render"
	"learntube-pipeline/config"
)

// Service describes how a generated scene wires its TTS engine.
type Service struct {
	Name        string
	ImportLine  string
	Constructor string
	Module      string // python module probed by Check
}

// FromConfig returns the speech service for cfg, defaulting to Coqui.
func FromConfig(cfg config.VoiceoverConfig) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Service)) {
	case "", "coqui":
		model := cfg.CoquiModel
		if model == "" {
			model = "tts_models/en/ljspeech/tacotron2-DDC"
		}
		return Service{
			Name:        "coqui",
			ImportLine:  "from manim_voiceover.services.coqui import CoquiService",
			Constructor: fmt.Sprintf("CoquiService(model_name=%q)", model),
			Module:      "manim_voiceover.services.coqui",
		}, nil
	case "gtts":
		return Service{
			Name:        "gtts",
			ImportLine:  "from manim_voiceover.services.gtts import GTTSService",
			Constructor: `GTTSService(lang="en")`,
			Module:      "manim_voiceover.services.gtts",
		}, nil
	case "azure":
		voice := cfg.AzureVoice
		if voice == "" {
			voice = "en-US-AriaNeural"
		}
		return Service{
			Name:        "azure",
			ImportLine:  "from manim_voiceover.services.azure import AzureService",
			Constructor: fmt.Sprintf("AzureService(voice=%q)", voice),
			Module:      "manim_voiceover.services.azure",
		}, nil
	default:
		return Service{}, fmt.Errorf("unknown voiceover service %q (want coqui, gtts or azure)", cfg.Service)
	}
}

// Status is the result of probing the render environment.
type Status struct {
	ManimVersion string `json:"manim_version,omitempty"`
	ManimOK      bool   `json:"manim_ok"`
	VoiceoverOK  bool   `json:"voiceover_ok"`
	Service      string `json:"service"`
	Detail       string `json:"detail,omitempty"`
}

// Check runs python to confirm manim and the speech service module import.
func Check(ctx context.Context, runner render.CommandRunner, python string, svc Service) Status {
	st := Status{Service: svc.Name}

	res, err := runner.Run(ctx, python, "-m", "manim", "--version")
	if err != nil {
		st.Detail = fmt.Sprintf("manim not available: %s", strings.TrimSpace(firstNonEmpty(res.Stderr, err.Error())))
		return st
	}
	st.ManimOK = true
	st.ManimVersion = strings.TrimSpace(res.Stdout)

	res, err = runner.Run(ctx, python, "-c", "import "+svc.Module)
	if err != nil {
		st.Detail = fmt.Sprintf("%s not importable, install with: pip install \"manim-voiceover[%s]\"", svc.Module, svc.Name)
		return st
	}
	st.VoiceoverOK = true
	return st
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
