package types

// Version is the application version, overridable at build time.
var Version = "0.1.0"

const (
	// BranchWorking holds edits that are not merged yet. It always wins
	// over the base branch copy during reconciliation.
	BranchWorking = "feature/upsert-release"

	// BranchRemoval is the head branch used for mirror-delete Pull Requests.
	BranchRemoval = "feature/remove-release"
)

// BaseBranchCandidates is the preference order used to discover the base
// branch of a repository. The repository default branch is the final
// fallback.
var BaseBranchCandidates = []string{"develop", "main", "master"}

// ReleaseDir is the repository directory holding release documents.
const ReleaseDir = "releases"

// ScriptDir is the repository directory holding release scripts.
const ScriptDir = "scripts"

// ReleaseFileName returns the canonical file name for a release document.
func ReleaseFileName(demandID string) string {
	return "release_" + demandID + ".md"
}

// ReleaseFilePath returns the repository path of a release document.
func ReleaseFilePath(demandID string) string {
	return ReleaseDir + "/" + ReleaseFileName(demandID)
}

// ScriptPath returns the repository path of a release script.
func ScriptPath(demandID, name string) string {
	return ScriptDir + "/" + demandID + "/" + name
}
