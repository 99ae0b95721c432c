package markdown

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

var (
	titleRe   = regexp.MustCompile(`(?i)^#\s+release\s+(\S+)\s*$`)
	boldRe    = regexp.MustCompile(`^\*\*(.+)\*\*$`)
	sectionRe = regexp.MustCompile(`(?i)^##\s*\d+\s*\.\s*(.+?)\s*$`)
)

// Parse extracts a partial release from a Markdown document produced by
// Render (or edited by hand). Section headers and role labels are matched
// case-insensitively; placeholder rows are skipped. Script bodies are not
// part of the document and are left empty.
func Parse(text string) (*model.Release, error) {
	r := &model.Release{}
	section := ""
	var descLines, obsLines []string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if m := titleRe.FindStringSubmatch(line); m != nil {
			r.DemandID = m[1]
			continue
		}
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			section = strings.ToLower(m[1])
			continue
		}
		if section == "" {
			if m := boldRe.FindStringSubmatch(line); m != nil && r.Title == "" {
				r.Title = m[1]
			}
			continue
		}

		switch section {
		case "responsible":
			if cells, ok := tableRow(line); ok {
				parseResponsible(r, cells)
			}
		case "description":
			if strings.HasPrefix(line, ">") {
				descLines = append(descLines, strings.TrimPrefix(strings.TrimPrefix(line, ">"), " "))
			}
		case "secrets":
			if cells, ok := tableRow(line); ok && len(cells) >= 4 && !strings.EqualFold(cells[0], "environment") {
				r.Secrets = append(r.Secrets, model.Secret{
					Environment: model.Environment(value(cells[0])),
					Key:         value(cells[1]),
					Description: value(cells[2]),
					Status:      model.SecretStatus(value(cells[3])),
				})
			}
		case "scripts":
			if cells, ok := tableRow(line); ok && len(cells) >= 3 && !strings.EqualFold(cells[0], "name") {
				r.Scripts = append(r.Scripts, model.Script{
					Name:     value(cells[0]),
					Path:     value(cells[1]),
					ChangeID: value(cells[2]),
				})
			}
		case "repositories":
			if cells, ok := tableRow(line); ok && len(cells) >= 4 && !strings.EqualFold(cells[0], "name") {
				r.Repositories = append(r.Repositories, model.Repository{
					Name:          value(cells[0]),
					URL:           value(cells[1]),
					Impact:        value(cells[2]),
					ReleaseBranch: value(cells[3]),
				})
			}
		case "observations":
			if line != "" && !strings.EqualFold(line, Placeholder) {
				obsLines = append(obsLines, line)
			}
		}
	}

	if r.DemandID == "" {
		return nil, goerr.New("release document has no '# Release <ID>' heading")
	}

	r.Description = strings.Join(descLines, "\n")
	r.Observations = strings.Join(obsLines, "\n")
	return r, nil
}

// tableRow splits a pipe-delimited row into trimmed cells. Separator rows
// and the "no entries" placeholder row yield ok=false.
func tableRow(line string) ([]string, bool) {
	if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	parts := strings.Split(inner, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	if len(cells) == 0 || isSeparator(cells) || strings.EqualFold(cells[0], Placeholder) {
		return nil, false
	}
	return cells, true
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if c == "" || strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func parseResponsible(r *model.Release, cells []string) {
	if len(cells) < 2 {
		return
	}
	name := value(cells[1])
	switch strings.ToLower(cells[0]) {
	case "developer":
		r.Responsible.Developer = name
	case "functional":
		r.Responsible.Functional = name
	case "tech lead":
		r.Responsible.TechLead = name
	case "sre":
		r.Responsible.SRE = name
	}
}

func value(cell string) string {
	if cell == emptyCell {
		return ""
	}
	return cell
}
