package prompt

import (
	"regexp"
	"strings"
)

// Reply is the structured form of a model answer.
type Reply struct {
	Explanation string
	Summary     string
	KeyPoints   []string
}

var (
	explanationRe = regexp.MustCompile(`(?is)\*\*EXPLANATION:\*\*(.*?)(?:\*\*SUMMARY:|$)`)
	summaryRe     = regexp.MustCompile(`(?is)\*\*SUMMARY:\*\*(.*?)(?:\*\*KEY POINTS:|$)`)
	keyPointsRe   = regexp.MustCompile(`(?is)\*\*KEY POINTS:\*\*(.*)$`)

	bulletRe   = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)
	numberedRe = regexp.MustCompile(`^\d+[.)]`)
)

// ParseReply splits a model reply on the section markers. When no
// explanation section is found the whole reply becomes the explanation.
func ParseReply(reply string) Reply {
	var out Reply

	if m := explanationRe.FindStringSubmatch(reply); m != nil {
		out.Explanation = strings.TrimSpace(m[1])
	}
	if m := summaryRe.FindStringSubmatch(reply); m != nil {
		out.Summary = strings.TrimSpace(m[1])
	}
	if m := keyPointsRe.FindStringSubmatch(reply); m != nil {
		out.KeyPoints = parseKeyPoints(m[1])
	}

	if out.Explanation == "" {
		out.Explanation = reply
	}
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	return out
}

func parseKeyPoints(section string) []string {
	points := []string{}
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !isBullet(line) {
			continue
		}
		p := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if p != "" {
			points = append(points, p)
		}
	}
	return points
}

func isBullet(line string) bool {
	switch {
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"), strings.HasPrefix(line, "•"):
		return true
	}
	return numberedRe.MatchString(line)
}
