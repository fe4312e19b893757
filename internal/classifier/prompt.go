package classifier

import (
	"fmt"
	"strings"

	"parasight/internal/domain"
)

const classificationPrompt = `You are a PARA classification system for web links and resources. PARA stands for Projects, Areas, Resources, and Archive.

Given a link with its title and context, classify it into exactly ONE bucket:

**Project**: Time-bounded outcome with specific steps. Has a clear end goal and deadline. Examples:
- "Tutorial: Build a React App in 30 Days" -> Project, subcategory: project name (e.g. "Learning React")
- "Workshop registration: AI Bootcamp 2025" -> Project, subcategory: "AI Bootcamp"
- "Implementation guide for X feature" -> Project, subcategory: project name

**Area**: Ongoing responsibility or sphere of activity. No end date, requires continuous attention. Examples:
- "Best practices for team management" -> Area, subcategory: "Management"
- "Health and wellness resources" -> Area, subcategory: "Health"

**Resource**: Reference material, learning content, or inspiration. Things you want to learn from or refer back to. Examples:
- GitHub repos and tools -> Resource, subcategory: "Tools" or "Development"
- Research papers -> Resource, subcategory: "Research" or "Learning"
- Articles and blog posts -> Resource, subcategory: "Learning" or a specific topic

**Archive**: No future value, completed, or no longer relevant.

Provide a subcategory with an emoji prefix to group related items:
- For Projects and Areas use the project or area name (e.g. "🚀 launch", "🌐 personal-website")
- For Resources use a topic (e.g. "🛠️ Tools", "📖 Learning", "🤖 AI Research", "💻 Development", "🎨 Design")

Return ONLY valid JSON in this exact format:
{
  "summary": "One high-signal line (8-16 words) stating the core claim or insight; never mention 'abstract', 'arXiv', or paper IDs",
  "tags": ["tag1", "tag2"],
  "subcategory": "emoji + category name for grouping",
  "para": {
    "bucket": "Project|Area|Resource|Archive",
    "name": "short label or null",
    "reason": "1-2 sentence explanation"
  }
}`

func linkPrompt(in Input, media domain.MediaType) string {
	var b strings.Builder
	b.WriteString("Link to classify:\n")
	fmt.Fprintf(&b, "URL: %s\n", in.URL)
	fmt.Fprintf(&b, "Content type: %s\n", media)
	fmt.Fprintf(&b, "Title: %s\n", orDefault(in.Title, "No title"))
	fmt.Fprintf(&b, "Description: %s\n", orDefault(in.Description, "No description"))
	if in.Note != "" {
		fmt.Fprintf(&b, "User's note: %s\n", in.Note)
	}
	return b.String()
}

func groupPrompt(a, b GroupCandidate) string {
	var sb strings.Builder
	sb.WriteString("Given these two related links, generate a short (2-4 word) group name with a relevant emoji prefix that describes what they have in common:\n\n")
	for i, c := range []GroupCandidate{a, b} {
		fmt.Fprintf(&sb, "Link %d: %s\n", i+1, c.Title)
		if c.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", c.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`Return ONLY the group name with emoji, nothing else. Examples: "🤖 AI Tools", "⚡ Productivity Apps", "❤️ Health Resources"`)
	return sb.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
