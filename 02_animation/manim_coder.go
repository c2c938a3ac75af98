package animation

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode"

	"learntube-pipeline/config"
	"learntube-pipeline/llm"
	"learntube-pipeline/types"
	"learntube-pipeline/voiceover"
)

const promptTemplate = `You are a world-class motion graphics artist and expert Manim developer, specializing in creating visually-heavy educational content with the manim-voiceover plugin. Your goal is to produce a Manim script that is not just text on a screen, but a rich, dynamic, and memorable visual explanation of the topic: "{{TOPIC}}".

### CORE TECHNICAL DIRECTIVE (TTS)
1. Class & Imports: the script MUST start with:
   from manim import *
   from manim_voiceover import VoiceoverScene
   {{IMPORT}}
2. Voiceover setup: the construct method must begin with:
   self.camera.background_color = {{BACKGROUND}}
   self.set_speech_service({{SERVICE}})
3. The voiceover block: the core logic MUST be structured with ` + "`with self.voiceover(text=\"...\") as tracker:`" + `.
4. Perfect timing: all self.play() calls inside a voiceover block MUST use tracker.duration. The sum of sequential run_times must equal tracker.duration.

### VISUAL STYLE GUIDE
- The visuals must explain and enhance the narration.
- Use Transform, ReplacementTransform, Arrow, Dot, VGroup, and layouts (.arrange(), .to_edge()).
- Animate all elements. Avoid static views.
- Use a text color that contrasts with the {{BACKGROUND}} background.

### CRITICAL MANIM CODING RULES
- The class name MUST be {{CLASS}} and inherit from VoiceoverScene.
- Return ONLY the raw, executable Python code.
- NEVER use external files: no SVGMobject, no images, no placeholder paths like "book.svg".
- Built-in shapes only: Rectangle, Circle, Dot, Text, MathTex, Arrow, etc.
- Line objects take stroke_opacity, never opacity.
- Do not call .look_at(); use .rotate() or .rotate_about_point() instead.
- Clear text between scenes: end each voiceover block with FadeOut() of every object it created.

### REPLACEMENT GUIDE FOR COMMON SVG OBJECTS
- Book: Rectangle with Text "📚" or "Book"
- Chatbot: Circle with Text "🤖" or Rectangle with "AI"
- Translate: Arrow with Text "🌐 Translate"
- Code: Rectangle with Text "<Code>"
- Poem: Rectangle with Text "📝 Poem"
- People: Circle with Text "👥"
- Productivity: Rectangle with Text "⚡ Productivity"
- Discovery: Circle with Text "🔍"

### EXAMPLE CODE PATTERNS
✅ Correct Line usage:
    Line(start_point, end_point, color=GRAY, stroke_opacity=0.5)

❌ Avoid these patterns:
    Line(start_point, end_point, opacity=0.5)  # wrong parameter
    SVGMobject("book.svg")  # external file dependency
    character.look_at(brain)  # invalid method

✅ Correct rotation patterns:
    character.animate.rotate(PI/6)
    character.animate.rotate_about_point(angle, point)

✅ Proper scene transitions:
    with self.voiceover(text="...") as tracker:
        # ... your animations ...
        self.play(FadeOut(text_obj, brain, character), run_time=tracker.duration/4)

❌ Avoid persistent text:
    with self.voiceover(text="...") as tracker:
        text_obj = Text("Hello")
        self.play(Write(text_obj), run_time=tracker.duration/2)
        # missing FadeOut, the text stays on screen for the rest of the video

### Provided narration script (one voiceover block per paragraph)
{{NARRATION}}

Now generate the complete, visualization-heavy Manim script using only built-in Manim objects and correct parameter names.`

var wordSplitter = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Coder synthesizes Manim + manim-voiceover code for a narration
type Coder struct {
	cfg *config.Config
	gen llm.Generator
	svc voiceover.Service
}

// New creates a new Coder
func New(cfg *config.Config, gen llm.Generator, svc voiceover.Service) *Coder {
	return &Coder{cfg: cfg, gen: gen, svc: svc}
}

// Run asks the model for a complete scene script narrated by the configured speech service
func (c *Coder) Run(ctx context.Context, topic, narration string) (*types.AnimationScript, error) {
	className := SceneClassName(topic)
	log.Printf("[animation] Generating Manim script with %s voiceover, class %s", c.svc.Name, className)

	text, err := c.gen.Generate(ctx, c.BuildPrompt(topic, className, narration))
	if err != nil {
		return nil, fmt.Errorf("failed to generate Manim script: %w", err)
	}

	code := llm.CleanFence(text, "python", "py")
	if code == "" {
		return nil, fmt.Errorf("failed to generate Manim script: model returned empty code")
	}
	if !DefinesClass(code, className) {
		return nil, fmt.Errorf("failed to generate Manim script: code does not define class %s", className)
	}

	log.Printf("[animation] ✅ Manim script ready: %d lines", strings.Count(code, "\n")+1)
	return &types.AnimationScript{ClassName: className, Code: code}, nil
}

// BuildPrompt renders the code-generation prompt
func (c *Coder) BuildPrompt(topic, className, narration string) string {
	background := c.cfg.Voiceover.Background
	if background == "" {
		background = "WHITE"
	}
	r := strings.NewReplacer(
		"{{TOPIC}}", topic,
		"{{IMPORT}}", c.svc.ImportLine,
		"{{SERVICE}}", c.svc.Constructor,
		"{{BACKGROUND}}", background,
		"{{CLASS}}", className,
		"{{NARRATION}}", strings.TrimSpace(narration),
	)
	return r.Replace(promptTemplate)
}

// SceneClassName converts a topic into a PascalCase Python class name ending in Scene.
func SceneClassName(topic string) string {
	var sb strings.Builder
	for _, word := range wordSplitter.Split(topic, -1) {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}

	name := sb.String()
	if name == "" {
		return "ExplainerScene"
	}
	if first := []rune(name)[0]; unicode.IsDigit(first) {
		name = "Topic" + name
	}
	return name + "Scene"
}

// DefinesClass reports whether code declares a top-level class named className.
func DefinesClass(code, className string) bool {
	pattern := regexp.MustCompile(`(?m)^class\s+` + regexp.QuoteMeta(className) + `\s*[(:]`)
	return pattern.MatchString(code)
}
