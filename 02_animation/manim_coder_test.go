package animation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"learntube-pipeline/config"
	"learntube-pipeline/voiceover"
)

type fakeGenerator struct {
	prompt string
	out    string
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func newCoder(t *testing.T, gen *fakeGenerator) *Coder {
	t.Helper()
	cfg := config.Default()
	svc, err := voiceover.FromConfig(cfg.Voiceover)
	if err != nil {
		t.Fatalf("voiceover: %v", err)
	}
	return New(cfg, gen, svc)
}

func TestSceneClassName(t *testing.T) {
	tests := map[string]string{
		"How do black holes form?": "HowDoBlackHolesFormScene",
		"photosynthesis":           "PhotosynthesisScene",
		"  DNA_replication-basics": "DnaReplicationBasicsScene",
		"3 laws of motion":         "Topic3LawsOfMotionScene",
		"???":                      "ExplainerScene",
		"":                         "ExplainerScene",
		"théorème de Pythagore":    "ThéorèmeDePythagoreScene",
	}
	for topic, want := range tests {
		if got := SceneClassName(topic); got != want {
			t.Errorf("SceneClassName(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestCoderRun(t *testing.T) {
	code := "```python\nfrom manim import *\n\nclass GravityScene(VoiceoverScene):\n    def construct(self):\n        pass\n```"
	gen := &fakeGenerator{out: code}
	c := newCoder(t, gen)

	script, err := c.Run(context.Background(), "gravity", "Things fall.\n\nThe moon orbits.")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if script.ClassName != "GravityScene" {
		t.Fatalf("class = %q", script.ClassName)
	}
	if strings.Contains(script.Code, "```") {
		t.Fatalf("fence not stripped: %q", script.Code)
	}
	for _, want := range []string{
		"The class name MUST be GravityScene",
		"from manim_voiceover.services.coqui import CoquiService",
		`CoquiService(model_name="tts_models/en/ljspeech/tacotron2-DDC")`,
		"self.camera.background_color = WHITE",
		"The moon orbits.",
		"REPLACEMENT GUIDE FOR COMMON SVG OBJECTS",
		"Chatbot: Circle with Text",
		"stroke_opacity=0.5",
		"character.look_at(brain)  # invalid method",
		"FadeOut(text_obj, brain, character)",
	} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestCoderRunRejectsWrongClass(t *testing.T) {
	gen := &fakeGenerator{out: "class SomethingElse(VoiceoverScene):\n    pass"}
	_, err := newCoder(t, gen).Run(context.Background(), "gravity", "n")
	if err == nil || !strings.Contains(err.Error(), "does not define class GravityScene") {
		t.Fatalf("error = %v", err)
	}
}

func TestCoderRunWrapsGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}
	_, err := newCoder(t, gen).Run(context.Background(), "gravity", "n")
	if err == nil || !strings.HasPrefix(err.Error(), "failed to generate Manim script") {
		t.Fatalf("error = %v", err)
	}
}

func TestDefinesClass(t *testing.T) {
	if !DefinesClass("x = 1\nclass A(VoiceoverScene):\n", "A") {
		t.Fatal("expected match")
	}
	if DefinesClass("class AB(VoiceoverScene):\n", "A") {
		t.Fatal("prefix should not match")
	}
	if DefinesClass("    class A:\n", "A") {
		t.Fatal("nested class should not match")
	}
}
