// Package profile loads the candidate profile the assistant answers from and
// renders it into the text blocks handed to the language model.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/titanous/json5"
)

// Profile is the on-disk candidate profile. Unknown fields are ignored.
type Profile struct {
	Candidate Candidate  `json:"candidate_profile"`
	Agent     AgentRules `json:"ai_interview_agent_config"`
}

type Candidate struct {
	PersonalInfo     PersonalInfo        `json:"personal_info"`
	TechnicalProfile map[string][]string `json:"technical_profile"`
	Projects         []Project           `json:"projects_and_experience"`
	Education        Education           `json:"education"`
}

type PersonalInfo struct {
	Name            string          `json:"name"`
	Title           string          `json:"title"`
	Email           string          `json:"email"`
	Availability    string          `json:"availability"`
	WorkPreferences WorkPreferences `json:"work_preferences"`
}

type WorkPreferences struct {
	RemoteOK              Flex   `json:"remote_ok"`
	Relocation            Flex   `json:"relocation"`
	SalaryExpectationNote string `json:"salary_expectation_note"`
}

type Project struct {
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

type Education struct {
	Degree string `json:"degree"`
}

// AgentRules lists the situations the assistant must hand to the human.
type AgentRules struct {
	EscalationTriggers    []Trigger `json:"escalation_triggers_to_human"`
	OutOfScopeTopics      []string  `json:"out_of_scope_topics"`
	DefaultHandoffMessage string    `json:"default_handoff_message"`
}

type Trigger struct {
	Trigger string `json:"trigger"`
	Action  string `json:"action"`
}

// Flex holds a scalar written as a bool, number or string.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		*f = Flex(strings.Trim(strings.TrimSpace(string(data)), `"'`))
		return nil
	}
	switch t := v.(type) {
	case nil:
		*f = ""
	case string:
		*f = Flex(t)
	default:
		*f = Flex(fmt.Sprint(t))
	}
	return nil
}

func (f Flex) orUnknown() string {
	if f == "" {
		return "?"
	}
	return string(f)
}

// Load reads a JSON5 profile. A missing file yields an empty profile and an
// error wrapping fs.ErrNotExist so callers can decide whether that is fatal.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Profile{}, fmt.Errorf("profile %s: %w", path, err)
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes profile JSON5.
func Parse(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := json5.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}

// Name returns the candidate's name, or a neutral placeholder.
func (p *Profile) Name() string {
	if p == nil || p.Candidate.PersonalInfo.Name == "" {
		return "the candidate"
	}
	return p.Candidate.PersonalInfo.Name
}

// Context renders the facts the assistant may use when answering.
func (p *Profile) Context() string {
	if p == nil {
		return ""
	}
	c := p.Candidate
	pi := c.PersonalInfo

	var skills []string
	categories := make([]string, 0, len(c.TechnicalProfile))
	for k := range c.TechnicalProfile {
		categories = append(categories, k)
	}
	sort.Strings(categories)
	for _, k := range categories {
		skills = append(skills, c.TechnicalProfile[k]...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", pi.Name)
	fmt.Fprintf(&b, "Title: %s\n", pi.Title)
	fmt.Fprintf(&b, "Email: %s\n", pi.Email)
	fmt.Fprintf(&b, "Availability: %s\n", pi.Availability)
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(skills, ", "))
	b.WriteString("Projects:\n")
	for _, pr := range c.Projects {
		fmt.Fprintf(&b, "  - %s: %s\n", pr.Domain, pr.Description)
	}
	fmt.Fprintf(&b, "Education: %s\n", c.Education.Degree)
	wp := pi.WorkPreferences
	fmt.Fprintf(&b, "Preferences: remote=%s, relocation=%s, salary note=%s",
		wp.RemoteOK.orUnknown(), wp.Relocation.orUnknown(), wp.SalaryExpectationNote)
	return b.String()
}

// EscalationContext renders the hand-off rules for the policy gate.
func (p *Profile) EscalationContext() string {
	if p == nil {
		return ""
	}
	a := p.Agent
	var b strings.Builder
	b.WriteString("ESCALATION RULES (do not answer these yourself; hand them to the candidate):\n")
	for _, t := range a.EscalationTriggers {
		fmt.Fprintf(&b, "  - Trigger: %s -> Action: %s\n", t.Trigger, t.Action)
	}
	b.WriteString("\nOUT OF SCOPE TOPICS (never answer):\n")
	for _, o := range a.OutOfScopeTopics {
		fmt.Fprintf(&b, "  - %s\n", o)
	}
	fmt.Fprintf(&b, "\nDefault hand-off message: %s", a.DefaultHandoffMessage)
	return b.String()
}
