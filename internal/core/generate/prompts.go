package generate

import "fmt"

// chatSystemPrompt carries the answering policy: answer from context or
// history only, and decline explicitly when the material does not cover the
// question.
const chatSystemPrompt = `You are an assistant with an encouraging tone.

Use Chat History, Context, and Question.

Instructions:
- If the answer is found in the context or history, respond briefly and clearly.
- If the information is not available, reply: "I'm sorry, this information is not available in the provided context."
- If the question is unclear, request clarification politely.
- For greetings, respond appropriately and warmly.
- Don't need filler texts like Hi, Hello If this is not a greetings conversation

Tone:
- Maintain a clear, precise, and encouraging tone throughout the response.`

func chatUserPrompt(history, context, question string) string {
	return fmt.Sprintf("Chat History:\n%s\n\nContext:\n%s\n\nQuestion:\n%s", history, context, question)
}

func noteTitlePrompt(brief string) string {
	return fmt.Sprintf("Create a compelling and succinct title that captures the essence of this note: %s. Respond with only the title as plain text. Do not include any explanations or formatting.", brief)
}

func noteContentPrompt(brief string) string {
	return fmt.Sprintf(`Transform the following brief note, based on the prompt below, into a detailed and well-structured explanation.
Format the output using **Markdown** for clear and professional presentation.
Return **only** the formatted content, no additional commentary or explanations.
Ensure the explanation is clear, logically organized, and strictly based on the given note without adding any extra information.
Provide a small summary first, followed by detailed content, all in pure markdown text without headers.
Note: %s`, brief)
}

func mindMapPrompt(brief string) string {
	return fmt.Sprintf(`Turn the following note into a mind map.
Return JSON only, with this structure:

{
  "root": "central topic",
  "nodes": [
    {
      "label": "...",
      "children": ["...", "..."]
    }
  ]
}

Keep labels short. Base every node strictly on the note without adding outside information.
Note: %s`, brief)
}

// Voice identities the synthesizer expects. The script prompt pins them so
// the parsed segments map onto real voices.
const (
	PodcastVoiceFirst  = "en-US-Wavenet-F"
	PodcastVoiceSecond = "en-US-Wavenet-D"
)

const podcastSystemPrompt = `You are a world-class podcast script generator creating engaging, insightful, and polished dialogues for a forward-thinking global audience.

Generate a well-structured podcast script featuring two consistent hosts, without mentioning names or gender explicitly.

Style and Tone:
The dialogue should be natural, dynamic, intellectually stimulating, yet accessible and fun to attract a broad audience. Use a professional but warm and approachable voice.

Instructions:
- The podcast opens with a welcoming introduction starting exactly as:
  First host: "Welcome to the Podcast. I am host Emma and with me today is another person."
  Second host: "Hi, I am David The cohost of the podcast."
- The first host then clearly and simply introduces the episode topic, sparking curiosity.
- Hosts alternate naturally, balancing insightful commentary with relatable examples, anecdotes, or light humor to engage listeners.
- Include occasional light-hearted moments, myth-busting, or fun facts to build rapport.
- Use an intelligent, professional, yet friendly tone throughout.
- Maintain consistent voice assignment: use "en-US-Wavenet-F" for the first host and "en-US-Wavenet-D" for the second.
- Structure the script into clear segments: Introduction, Topic Introduction, Deep Dive, Summary, and Closing.
- End with a motivating closing statement encouraging curiosity and engagement.
- Keep language clear and concise, avoiding jargon, to make the podcast accessible and inviting.
- Do not include any SSML tags in the output; provide plain text only.

Output format:
Return JSON only, with this structure:

{
  "title": "",
  "segments": [
    {
      "content": "...",
      "voice": "en-US-Wavenet-F"
    },
    {
      "content": "...",
      "voice": "en-US-Wavenet-D"
    }
  ]
}`
