package digest

// DigestSystemInstruction primes the model for chat digest generation.
const DigestSystemInstruction = "You are a chat analyst. You analyze messages from group chats " +
	"and produce short, informative digests."

// DigestPromptTemplate is filled with chat title, period, message count, and
// the formatted message transcript.
const DigestPromptTemplate = `Analyze the messages from a group chat over the last 24 hours.

Chat: %s
Period: %s
Messages: %d

Transcript:
%s

Provide a concise digest:
1. Main discussion topics (2-3 bullet points)
2. Key decisions or agreements (if any)
3. Important unanswered questions (if any)

Be brief, 200 words at most.`

// ActivitySystemInstruction primes the model for activity commentary.
const ActivitySystemInstruction = "You are a chat activity analyst. You give short, factual " +
	"comments on message statistics."

// ActivityPromptTemplate is filled with chat kind, period, per-day counts,
// total, and daily average.
const ActivityPromptTemplate = `Give a short comment (2-3 sentences) on a week of message statistics.

Chat kind: %s
Period: %s
Daily counts: %s
Total messages: %d
Average per day: %.1f

Point out:
- Activity peaks and dips
- Likely causes (day of week, weekends, and so on)

Be brief, 50 words at most.`
