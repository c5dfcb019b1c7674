package app

import (
	"fmt"
	"strings"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/profile"
)

// Stage call temperatures. Generation wants variety, evaluation wants
// consistency.
const (
	generationTemperature = 0.8
	refinementTemperature = 0.6
	evaluationTemperature = 0.3
)

// BuildGenerationPrompt renders the single batched prompt asking the
// generator role for exactly n ideas as a numbered list.
func BuildGenerationPrompt(topic brainstorm.Topic, prof profile.Profile, n int) string {
	return fmt.Sprintf(`You are a master of creativity who provides unique and practical ideas for users.

**Topic**: %s
**User Background**: %s
**Behavior Pattern**: %s

Please provide exactly %d creative ideas. Requirements:
1. **Highly practical** - each idea must be actionable
2. **Innovative & distinctive** - avoid cliches; personalize to the user's traits
3. **Varied levels** - include options with different difficulty and effort levels

Output format (numbered list only, one idea per line, no extra explanation):
1. [Specific idea]
2. [Specific idea]
3. [Specific idea]
...`, topic, prof.ContextSummary(), prof.BehaviorSummary(), n)
}

const refinementSystemPrompt = "You are an experienced project execution specialist who translates ideas into feasible plans."

// BuildRefinementPrompt renders the per-candidate prompt asking the
// refiner role for a structured plan as JSON.
func BuildRefinementPrompt(topic brainstorm.Topic, cand brainstorm.IdeaCandidate) string {
	return fmt.Sprintf(`You are a professional execution expert who turns creative ideas into actionable project plans.

Original Topic: %s
Idea Concept: %s

Expand this idea into an executable plan. Respond with a single JSON object, no other text:
{
  "summary": "one-sentence plan summary",
  "steps": ["3-5 concrete implementation steps"],
  "resources": ["required resources and conditions"],
  "timeline": "expected timeline",
  "risks": ["potential risks and mitigation strategies"]
}

Keep the plan structured and practical so it is immediately actionable.`, topic, cand.Text)
}

// BuildEvaluationPrompt renders the per-plan scoring prompt for the
// evaluator role. Scores come back as integers on the 0-100 scale.
func BuildEvaluationPrompt(topic brainstorm.Topic, plan brainstorm.Plan, prof profile.Profile) string {
	return fmt.Sprintf(`You are a professional idea evaluation expert. Please provide an objective score.

**To Evaluate**:
Original Topic: %s
Idea Concept: %s
Detailed Plan:
%s

**User Info**:
%s
%s

**Scoring Dimensions** (each 0-100):
1. relevance: alignment and fit with the original topic
2. user_fit: match to user background, interests, and historical behavior
3. feasibility: practical operability, resource reasonableness, implementation difficulty
4. originality: uniqueness, novelty, and breakthrough thinking

Pay special attention to user_fit; leverage the user's interests and behavior.
If user info is limited, score based on general usefulness and applicability.

Respond with a single JSON object, no other text:
{"relevance": 0, "user_fit": 0, "feasibility": 0, "originality": 0, "justification": "brief per-dimension explanation"}`,
		topic, plan.Idea, strings.TrimSpace(plan.Detail()), prof.ContextSummary(), prof.BehaviorSummary())
}
