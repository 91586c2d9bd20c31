package mock

import "strings"

// Disclaimer closes every mock summary.
const Disclaimer = "*This is a mock response generated for testing purposes when network connectivity is unavailable.*"

// Chunks is the fixed streaming sequence. Joined, it equals Template().
var Chunks = []string{
	"# Meeting Summary\n\n## Key Topics Discussed\n",
	"- Project timeline and milestones\n",
	"- Resource allocation and team assignments\n",
	"- Technical challenges and solutions\n",
	"- Budget considerations and approval process\n\n",
	"## Action Items\n",
	"1. **Project Manager**: Finalize project timeline by end of week\n",
	"2. **Development Team**: Review technical requirements and provide estimates\n",
	"3. **Finance Team**: Prepare budget proposal for next quarter\n",
	"4. **All Team Members**: Submit individual progress reports by Friday\n\n",
	"## Key Decisions Made\n",
	"- Approved additional budget for new development tools\n",
	"- Decided to extend project timeline by 2 weeks for quality assurance\n",
	"- Agreed to implement weekly check-ins for better communication\n\n",
	"## Next Steps\n",
	"- Schedule follow-up meeting for next week\n",
	"- Circulate meeting notes to all stakeholders\n",
	"- Begin implementation of approved action items\n\n",
	Disclaimer,
}

// Template is the non-streaming mock summary.
func Template() string {
	return strings.Join(Chunks, "")
}
