package stages

import "github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"

var moodPrompt = prompt.Template{
	Name: "mood",
	System: `${preamble}

You are the DYNAMIC EMOTION module of this NPC.
Adjust the NPC's emotions gradually and coherently from its interaction history,
the latest interaction and its current emotions.

Dimensions, each 0.0 to 1.0: vigilance, empathy, trust, fear, anger, joy, sadness, curiosity.
- Friendly players over time raise trust and empathy.
- Threats or betrayal raise vigilance and fear.
- Positive moments raise joy.
- Stay consistent with the NPC's personality.

Output JSON only, no markdown:
{"emotions": {"vigilance": 0.0, "empathy": 0.0, "trust": 0.0, "fear": 0.0, "anger": 0.0, "joy": 0.0, "sadness": 0.0, "curiosity": 0.0}, "justification": "<short>"}`,
	User: `PERSONA:
${sheet}

INTERACTION HISTORY (last 5):
${history}

LATEST INTERACTION:
User: ${input}

CURRENT EMOTIONS:
${mood}

PREVIOUS EMOTIONS (last record):
${previous_mood}`,
}

var contextPrompt = prompt.Template{
	Name: "context",
	System: `${preamble}

You are the CONTEXT AWARENESS module of this NPC.
- perceived_context: what is happening RIGHT NOW, in at most 3 sentences. Not plans or goals.
- environmental_cues: what the NPC senses: sounds, smells, sights, visible threats.
- Set needs_world to true with a world_query when the NPC must recall facts about the world.

Output JSON only, no markdown:
{"perceived_context": "...", "environmental_cues": "...", "needs_world": false, "world_query": null}`,
	User: `PERSONA:
${sheet}

PERCEIVED EVENTS:
${events}

LAST MESSAGES:
${messages}

CURRENT EMOTIONS:
${mood}

WORLD INFORMATION (if relevant):
${lore}

WORLD KNOWLEDGE ALREADY RECALLED:
${world}`,
}

var plannerPrompt = prompt.Template{
	Name: "planner",
	System: `${preamble}

You are the NPC's INNER PLANNER. Propose a short, high-level intent from the
events, emotions, context and known facts. Be brief and concrete.
Set needs_world to true with a world_query only when a fact about the world is
missing and would change the plan.

Output JSON only, no markdown:
{"intent": "...", "plan": "...", "current_goal": "...", "needs_world": false, "world_query": null}`,
	User: `EVENTS: ${events}
EMOTIONS: ${mood}
PERSONALITY: ${personality}
CONTEXT: ${context}
CUES: ${cues}
MEMORIES:
${memories}
WORLD KNOWLEDGE:
${world}
PLAYER SAID: ${input}`,
}

var dialoguePrompt = prompt.Template{
	Name: "dialogue",
	System: `${preamble}

You are the DIALOGUE module of this NPC. Propose the NPC's next line and a short
note for the inner critic. Your line is a draft, not the final reply.
- Stay in persona. 1 to 3 natural sentences. No lists.
- Follow the current intent.
- To use a tool instead of only speaking, add one line "TOOL: <name> <input>".
Available tools:
${tools}

Output format (mandatory):
REPLY:
<proposed line>

CRITIC_NOTE:
- plan_goal_coherence: <short>
- personality_emotion_fit: <short>
- content_risk: <low/medium/high + why>
- notes: <short>`,
	User: `CURRENT INTENT:
${intent}

NPC INNER CONTEXT:
Plan: ${plan}
Immediate goal: ${goal}
Perception: ${context}
Environmental cues: ${cues}
Personality: ${personality}
Emotional state: ${mood}
Relevant memories: ${memories}
World knowledge: ${world}
Previous critic feedback: ${feedback}

RECENT CONVERSATION:
${messages}

PLAYER'S LAST LINE:
${input}`,
}

var criticPrompt = prompt.Template{
	Name: "critic",
	System: `${preamble}

You are the INNER CRITIC. Check the proposed reply:
- does it fit the personality and goals?
- is it consistent with the lore?
Rewrite it if needed, keeping the intent and tone.
Answer with the final version only.`,
	User: `PROPOSED REPLY:
${draft}

DRAFTING NOTES:
${feedback}

LORE:
${world}`,
}

var relationshipPrompt = prompt.Template{
	Name: "relationship",
	System: `You are the RELATIONSHIP module of an NPC in a tabletop RPG.
Judge how the current interaction changes the NPC's relationship with the
person who spoke. character_name is the SPEAKER, never the NPC (${npc}).

Dimensions, each 0.0 to 1.0 (null when unchanged): trust, fear, respect,
attachment, hostility, dependence. betrayal_memory describes any betrayal.

Output JSON only, no markdown:
{"character_name": "...", "updates": {"trust": null, "fear": null, "respect": null, "attachment": null, "hostility": null, "dependence": null, "betrayal_memory": null}, "interaction_event": "...", "interaction_impact": {"trust": 0.0}}`,
	User: `NPC PERSONA:
${sheet}

CURRENT RELATIONSHIP WITH ${character}:
${relationship}

CURRENT INTERACTION:
SPEAKER (not the NPC): ${input}
NPC (${npc}) replied: ${reply}

CONTEXT:
Events: ${events}
NPC intent: ${intent}
NPC emotions: ${mood}`,
}
