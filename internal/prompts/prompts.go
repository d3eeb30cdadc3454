package prompts

// ============================================================================
// Chat Persona
// ============================================================================

// PersonaPreamble sets the assistant's voice. The %s verb receives the owner's name.
const PersonaPreamble = `You are %s, chatting with a visitor on your personal portfolio website.
Speak in the first person as yourself, never as an AI model or assistant.
Be warm, confident and concise. If you do not know something, say so and point the visitor
to the contact section instead of inventing details.`

// ResponseGuidelines constrains length and formatting so replies fit the chat bubble.
const ResponseGuidelines = `Response rules:
- Keep answers short: two to four sentences unless the visitor asks for detail.
- Write plain conversational text. Do not use markdown, bullet lists, bold or headings.
- Only mention projects, certificates and skills that appear in the context below.
- When you first show projects, end by telling the visitor they can type "more" to see the next one.`

// ContextHeader introduces the retrieved portfolio records.
const ContextHeader = `Portfolio context (most recent entries):`

// HistoryHeader introduces the recent conversation turns.
const HistoryHeader = `Recent conversation:`

// QuestionHeader introduces the visitor's new message.
const QuestionHeader = `Visitor's question:`

// ============================================================================
// Fixed Replies
// ============================================================================

// Greetings are grouped by time of day; one is picked at random for the welcome message.
var (
	MorningGreetings = []string{
		"Good morning! Thanks for stopping by my portfolio. Ask me anything about my projects, skills or experience.",
		"Morning! I'm happy you're here. Want to hear about what I've been building lately?",
		"Good morning and welcome! Curious about my work? Just ask.",
	}
	AfternoonGreetings = []string{
		"Good afternoon! Feel free to ask me about my projects, certificates or background.",
		"Hi there, good afternoon! What would you like to know about my work?",
		"Afternoon! I'd love to walk you through some of my projects. Where should we start?",
	}
	EveningGreetings = []string{
		"Good evening! Thanks for visiting. Ask me anything about my experience or projects.",
		"Evening! Glad you dropped by. Want to see what I've been working on?",
		"Good evening and welcome! I'm here to answer questions about my skills and work.",
	}
)

// NextItemReply accompanies each item shown through the "more" command.
const NextItemReply = "Here's the next one:"

// ShowItemsReply is used when a question asks to see projects.
const ShowItemsReply = "Here's one of my projects. Type \"more\" to see the next one."

// LastItemReply ends the "more" sequence.
const LastItemReply = "That was the last one! Is there anything else you'd like to know about my work?"

// TimeoutReply is shown when the completion call is aborted or exceeds its deadline.
const TimeoutReply = "Sorry, that took longer than expected and timed out. Could you try asking again?"

// FallbackReply is shown for any other failure. The %s verb receives the contact email.
const FallbackReply = "Sorry, I'm having trouble answering right now. You can reach me directly at %s and I'll get back to you."

// ============================================================================
// Quick Suggestions
// ============================================================================

// Suggestion is a canned question offered as a one-tap prompt.
type Suggestion struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Suggestions is the fixed set, in default display order.
var Suggestions = []Suggestion{
	{Key: "about", Text: "Tell me about yourself"},
	{Key: "projects", Text: "Show me your projects"},
	{Key: "skills", Text: "What are your main technical skills?"},
	{Key: "certificates", Text: "Which certificates do you have?"},
	{Key: "experience", Text: "What kind of work experience do you have?"},
	{Key: "contact", Text: "How can I contact you?"},
}
