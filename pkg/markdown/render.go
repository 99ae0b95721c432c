// Package markdown converts releases to and from their canonical Markdown
// document, the wire format exchanged with the Git provider. Section order
// and table layout are fixed so that documents round-trip byte-stably.
package markdown

import (
	"strings"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// Placeholder is the first cell of the row emitted for an empty table.
// Rendering an explicit row instead of an empty table keeps parse(render(r))
// stable.
const Placeholder = "None"

const emptyCell = "-"

// Render converts a release to its canonical Markdown document.
func Render(r *model.Release) string {
	var b strings.Builder

	b.WriteString("# Release " + r.DemandID + "\n\n")
	if r.Title != "" {
		b.WriteString("**" + r.Title + "**\n\n")
	}

	b.WriteString("## 1. Responsible\n\n")
	b.WriteString("| Role | Name |\n")
	b.WriteString("|------|------|\n")
	b.WriteString("| Developer | " + cell(r.Responsible.Developer) + " |\n")
	b.WriteString("| Functional | " + cell(r.Responsible.Functional) + " |\n")
	b.WriteString("| Tech Lead | " + cell(r.Responsible.TechLead) + " |\n")
	b.WriteString("| SRE | " + cell(r.Responsible.SRE) + " |\n\n")

	b.WriteString("## 2. Description\n\n")
	if r.Description == "" {
		b.WriteString(Placeholder + "\n\n")
	} else {
		for _, line := range strings.Split(r.Description, "\n") {
			b.WriteString("> " + line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## 3. Secrets\n\n")
	b.WriteString("| Environment | Key | Description | Status |\n")
	b.WriteString("|-------------|-----|-------------|--------|\n")
	if len(r.Secrets) == 0 {
		b.WriteString("| " + Placeholder + " | - | - | - |\n")
	}
	for _, s := range r.Secrets {
		b.WriteString("| " + cell(string(s.Environment)) + " | " + cell(s.Key) +
			" | " + cell(s.Description) + " | " + cell(string(s.Status)) + " |\n")
	}
	b.WriteString("\n")

	b.WriteString("## 4. Scripts\n\n")
	b.WriteString("| Name | Path | Change ID |\n")
	b.WriteString("|------|------|-----------|\n")
	if len(r.Scripts) == 0 {
		b.WriteString("| " + Placeholder + " | - | - |\n")
	}
	for _, s := range r.Scripts {
		b.WriteString("| " + cell(s.Name) + " | " + cell(s.Path) + " | " + cell(s.ChangeID) + " |\n")
	}
	b.WriteString("\n")

	b.WriteString("## 5. Repositories\n\n")
	b.WriteString("| Name | URL | Impact | Release Branch |\n")
	b.WriteString("|------|-----|--------|----------------|\n")
	if len(r.Repositories) == 0 {
		b.WriteString("| " + Placeholder + " | - | - | - |\n")
	}
	for _, repo := range r.Repositories {
		b.WriteString("| " + cell(repo.Name) + " | " + cell(repo.URL) +
			" | " + cell(repo.Impact) + " | " + cell(repo.ReleaseBranch) + " |\n")
	}
	b.WriteString("\n")

	b.WriteString("## 6. Observations\n\n")
	if r.Observations == "" {
		b.WriteString(Placeholder + "\n")
	} else {
		b.WriteString(r.Observations + "\n")
	}

	return b.String()
}

func cell(v string) string {
	if v == "" {
		return emptyCell
	}
	return strings.ReplaceAll(v, "|", "/")
}
