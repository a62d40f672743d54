package core

// Artifact is a piece of raw evidence attached to a task result: either the
// full transcript of an executed command or a named file body. The artifact
// writer serializes them; the core only accumulates them.
type Artifact interface {
	// ArtifactName returns the file name the artifact should persist under.
	ArtifactName() string
}

// CommandArtifact captures one executed command and its raw output.
type CommandArtifact struct {
	Command  string `json:"command" yaml:"command"`
	Stdout   string `json:"stdout" yaml:"stdout"`
	Stderr   string `json:"stderr" yaml:"stderr"`
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
}

// ArtifactName implements Artifact.
func (a CommandArtifact) ArtifactName() string {
	return "command_artifacts.json"
}

// FileArtifact is a named file body produced during collection or analysis,
// e.g. a filtered log written for later inspection.
type FileArtifact struct {
	Filename string `json:"filename" yaml:"filename"`
	Contents string `json:"contents" yaml:"contents"`
}

// ArtifactName implements Artifact.
func (a FileArtifact) ArtifactName() string {
	return a.Filename
}
