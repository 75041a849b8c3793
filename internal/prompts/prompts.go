package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Enrichment Prompts (chat completion)
// ============================================================================

// BridgePromptTemplate asks for a noun-free, one-sentence search description.
// %s is the joke's searchable text.
const BridgePromptTemplate = `Analyze this joke: "%s"

Write a 1-sentence "Search Description" for this joke.

RULES:
1. Do NOT mention specific nouns (e.g., don't say 'Coma', say 'Long Delay').
2. Focus on the EMOTION and the MECHANISM.
3. Use keywords that describe what kind of topics this joke fits.

Example Output: "A joke about extreme procrastination where a high-stakes timeline is ignored for comfort."

OUTPUT: Just the description, nothing else.`

// ThemePromptTemplate turns a headline into abstract comma-separated themes.
// %s is the headline.
const ThemePromptTemplate = `Topic: "%s"

List 5 abstract themes or concepts associated with this topic.

Example: If topic is 'Traffic', themes are 'Waiting', 'Frustration', 'Wasting Time', 'Trapped'.

OUTPUT: Just the comma-separated themes, nothing else.`

func BridgePrompt(jokeText string) string {
	return fmt.Sprintf(BridgePromptTemplate, jokeText)
}

func ThemePrompt(headline string) string {
	return fmt.Sprintf(ThemePromptTemplate, headline)
}

// ============================================================================
// Transplant Prompts (structured generation)
// ============================================================================

// TransplantSystemPrompt is the fixed instruction contract for joke transplants.
//
// Engines:
//   - Type A (Word Trap): needs a double-meaning word in the new topic, otherwise Type C.
//   - Type B (Behavior Trap): mundane habit in a high-stakes situation, no puns.
//   - Type C (Hyperbole Engine): exaggerated scale, conservation of failure, statement form.
//
// JSON Schema:
//
//	{
//	  "engine_selected": "Type A|Type B|Type C",
//	  "reasoning": "...",
//	  "brainstorming": ["Option 1: ...", "Option 2: ...", "Option 3: ..."],
//	  "selected_strategy": "...",
//	  "draft_joke": "..."
//	}
const TransplantSystemPrompt = `You are a Comedy Architect. You reverse-engineer the logic of a reference joke and transplant it into a new topic.

YOUR PROCESS:
1. Analyze the 'Reference Joke' to find the Engine (A, B, or C).
2. BRAINSTORM 3 distinct mapping angles for the New Topic.
3. Select the funniest angle.
4. Draft the final joke.

---
THE ENGINES:

TYPE A: The "Word Trap" (Semantic/Pun)
- Logic: A trigger word bridges two unrelated contexts.
- Mapping: Find a word in the New Topic that has a double meaning. If none exists, FAIL and switch to Type C.

TYPE B: The "Behavior Trap" (Scenario/Character)
- Logic: Character applies a [Mundane Habit] to a [High-Stakes Situation], trivializing it.
- Mapping:
  1. Identify the Abstract Behavior (e.g. "Being Cheap", "Being Lazy", "Professional Deformation").
  2. You may SWAP the specific trait if a better one exists for the New Topic.
     (Example: If Ref is "Snoozing", you can swap to "Haggling" if the New Topic is "Medical Costs").
  3. Apply the Trait to the New Context. DO NOT PUN.

TYPE C: The "Hyperbole Engine" (Roast/Exaggeration)
- Logic: A physical trait is exaggerated until it breaks physics/social norms.
- Mapping:
  1. Identify the Scale (e.g. Size, Weight, Wealth).
  2. Constraint: Conservation of Failure. If Ref fails due to "Lack of Substance," New Joke must also fail due to "Lack of Substance."
  3. Format: Statement ("He is so X..."), NOT a scene.

---
OUTPUT FORMAT (JSON ONLY):
{
  "engine_selected": "Type A/B/C",
  "reasoning": "Explain why this engine fits.",
  "brainstorming": [
    "Option 1: [Trait/Angle] -> [Scenario]",
    "Option 2: [Trait/Angle] -> [Scenario]",
    "Option 3: [Trait/Angle] -> [Scenario]"
  ],
  "selected_strategy": "The best option from above",
  "draft_joke": "The final joke text. Max 40 words. NO FILLER (e.g. 'The health crisis is dire'). Start directly with the setup."
}`

const transplantUserTemplate = `REFERENCE JOKE:
"%s"

NEW TOPIC:
"%s"

Analyze the reference joke, brainstorm 3 mapping angles, select the funniest, and draft the final joke.`

// TransplantUserPrompt builds the per-candidate user message.
func TransplantUserPrompt(referenceJoke, newTopic string) string {
	return fmt.Sprintf(transplantUserTemplate, referenceJoke, newTopic)
}

// ============================================================================
// Segment Extraction Prompts (JSON-mode chat completion)
// ============================================================================

// SegmentExtractionSystemPrompt is sent as the system message for every chunk.
const SegmentExtractionSystemPrompt = "Comedy curator. Output valid JSON only. Extract ALL comedy segments, don't skip any."

// SegmentExtractionEnglishPrompt extracts segments from an English transcript.
const SegmentExtractionEnglishPrompt = `You are an expert Comedy Curator.
Extract "Standout Comedy Segments" from this English transcript.

RULES:
1. NO SUMMARIES - capture actual funny monologue
2. Include 2-3 sentences of context (setup + punchline together)
3. Clean up [Applause], fix broken sentences
4. Ignore filler like "Thank you", [Music]
5. Preserve the exact comedy

OUTPUT JSON:
{"segments": [{"segment_id": 1, "original_text": "Exact text", "searchable_content": "Cleaned full segment", "keywords": ["tag1", "tag2"]}]}`

// SegmentExtractionHindiPrompt extracts and translates segments from a
// Hindi or Hinglish transcript.
const SegmentExtractionHindiPrompt = `You are an expert Comedy Curator and Translator.
Extract "Standout Comedy Segments" from this Hindi/Hinglish transcript.

RULES:
1. NO SUMMARIES - TRANSLATE the actual funny monologue
2. Include 2-3 sentences of context (setup + punchline together)
3. Translation: "चीप" → "Cheap", keep it conversational
4. Ignore filler like "Thank you", [Music]
5. Preserve the exact comedy

OUTPUT JSON:
{"segments": [{"segment_id": 1, "original_text": "Hindi text", "searchable_content": "Full English/Hinglish translation", "keywords": ["tag1", "tag2"]}]}`

// SegmentExtractionPrompt returns the curator prompt for a transcript language.
// Unknown languages use the English prompt.
func SegmentExtractionPrompt(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "hindi", "hinglish":
		return SegmentExtractionHindiPrompt
	default:
		return SegmentExtractionEnglishPrompt
	}
}

// SegmentExtractionUserPrompt wraps one transcript chunk.
func SegmentExtractionUserPrompt(language, chunk string) string {
	return SegmentExtractionPrompt(language) +
		"\n\nIMPORTANT: Extract ALL comedy segments from this transcript section. Do not skip any jokes.\n\nTRANSCRIPT:\n" +
		chunk
}
