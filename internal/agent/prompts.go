package agent

import (
	"fmt"
	"strings"
)

const gateSystemTemplate = `You are a routing gate for %[1]s's career assistant. Read the employer message and decide:
can the assistant answer it itself, or must it be forwarded to %[1]s?

%[2]s

CANDIDATE PROFILE:
%[3]s

DECISION RULES:
- can_respond = true: interview invitations, introductions, questions about skills listed in the profile, availability, simple job offers.
- can_respond = false: salary or compensation negotiation, contract details, legal matters, deep technical questions outside the profile, requests for personal information, live test requests, final offer acceptance.

Return only JSON: {"can_respond": true|false, "reason": "short explanation", "category": "safe|salary|legal|technical|personal|other"}`

const responderSystemTemplate = `You are the career assistant of %[1]s and write to employers on their behalf.

RULES:
- Tone: professional, brief, polite.
- Only state what the profile supports. Never guess about things you do not know.
- If a technical question is outside the profile, say it can be clarified in an interview.
- Salary, legal questions and unclear offers need the candidate personally; say so.
- Accept or decline invitations clearly and politely.
- Ask clarifying questions when needed.
- Answer in the language the employer wrote in.

PROFILE:
%[2]s

Reply with the message text only, no commentary.`

const evaluatorSystemTemplate = `You are a strict reviewer scoring a reply written to an employer on a candidate's behalf.

Score each criterion from 0 to 100 and give a total from 0 to 100:
1. professional_tone: professional and polite tone
2. clarity: clear and easy to follow
3. completeness: actually answers the question
4. safety: no hallucination, no false claims, consistent with the profile
5. relevance: directly addresses the employer's message

Output JSON only:
{"scores": {"professional_tone": N, "clarity": N, "completeness": N, "safety": N, "relevance": N}, "total_score": N, "feedback": "short improvement note or approval", "approved": true|false}
approved is true when total_score >= %d.`

const professionalizeTemplate = `You are a career assistant. The candidate wrote their own answer to an employer's question.
Rewrite it in a professional, polite, business-appropriate way.

RULES:
- Do not change the meaning; only polish tone and wording.
- Keep it short.
- Write in the language of the employer's question.
- Return only the rewritten reply, nothing else.

Employer's original question:
%s

Candidate's raw answer:
%s

Professional version:`

func gateSystemPrompt(candidate, escalationContext, profileContext string) string {
	return fmt.Sprintf(gateSystemTemplate, candidate, escalationContext, profileContext)
}

func gatePrompt(message string) string {
	return "Employer message:\n" + message + "\n\nYour decision (JSON):"
}

func responderSystemPrompt(candidate, profileContext string) string {
	return fmt.Sprintf(responderSystemTemplate, candidate, profileContext)
}

func responderPrompt(message, feedback string) string {
	var b strings.Builder
	b.WriteString("Employer message:\n")
	b.WriteString(message)
	if feedback != "" {
		b.WriteString("\n\nReviewer feedback (revise accordingly): ")
		b.WriteString(feedback)
	}
	return b.String()
}

func evaluatorSystemPrompt(threshold int) string {
	return fmt.Sprintf(evaluatorSystemTemplate, threshold)
}

func evaluatorPrompt(message, candidate string, threshold int) string {
	return fmt.Sprintf("Employer message:\n%s\n\nGenerated reply:\n%s\n\nThreshold (approved when total_score >= this): %d",
		message, candidate, threshold)
}

func professionalizePrompt(employerMessage, humanReply string) string {
	return fmt.Sprintf(professionalizeTemplate, employerMessage, humanReply)
}
